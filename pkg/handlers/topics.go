package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devroad-io/devroad-api/pkg/apperrors"
	"github.com/devroad-io/devroad-api/pkg/auth"
	"github.com/devroad-io/devroad-api/pkg/models"
	"github.com/devroad-io/devroad-api/pkg/services"
)

// maxBodySize caps request bodies; topic payloads are small.
const maxBodySize = 1 << 20

// Listing defaults and bounds.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// OwnerMiddleware wraps a handler with an owner-scoped database connection.
// It runs after auth middleware (database.WithOwnerContext satisfies it).
type OwnerMiddleware func(http.HandlerFunc) http.HandlerFunc

// TopicListResponse for GET /api/topics
type TopicListResponse struct {
	Topics []*models.Topic `json:"topics"`
	Total  int             `json:"total"`
}

// TopicHandler handles topic HTTP requests.
type TopicHandler struct {
	topicService services.TopicService
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewTopicHandler creates a new topic handler. storeTimeout bounds each
// store round trip; a deadline hit surfaces as the internal outcome.
func NewTopicHandler(topicService services.TopicService, storeTimeout time.Duration, logger *zap.Logger) *TopicHandler {
	return &TopicHandler{
		topicService: topicService,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// RegisterRoutes registers the topic handler's routes on the given mux.
func (h *TopicHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, ownerMiddleware OwnerMiddleware) {
	base := "/api/topics"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuth(ownerMiddleware(h.List)))
	mux.HandleFunc("POST "+base,
		authMiddleware.RequireAuth(ownerMiddleware(h.Create)))
	mux.HandleFunc("GET "+base+"/{id}",
		authMiddleware.RequireAuth(ownerMiddleware(h.Get)))
	mux.HandleFunc("PATCH "+base+"/{id}",
		authMiddleware.RequireAuth(ownerMiddleware(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}",
		authMiddleware.RequireAuth(ownerMiddleware(h.Delete)))
}

// Update handles PATCH /api/topics/{id}
//
// Pipeline: caller identity -> path id -> strict body validation ->
// owner-scoped partial update -> response. Stops at the first failure.
func (h *TopicHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		h.unauthorized(w)
		return
	}

	topicID, ok := ParseTopicID(w, r, h.logger)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	patch, err := models.ParseTopicPatch(body)
	if err != nil {
		var fieldErrs models.FieldErrors
		if errors.As(err, &fieldErrs) {
			if err := ValidationErrorResponse(w, fieldErrs); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	topic, err := h.topicService.UpdateTopic(ctx, ownerID, topicID, patch)
	if err != nil {
		h.writeTopicError(w, r, err, ownerID, topicID)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: topic}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/topics
func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		h.unauthorized(w)
		return
	}

	var req models.TopicCreate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	topic, err := h.topicService.CreateTopic(ctx, ownerID, &req)
	if err != nil {
		var fieldErrs models.FieldErrors
		if errors.As(err, &fieldErrs) {
			if err := ValidationErrorResponse(w, fieldErrs); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.writeTopicError(w, r, err, ownerID, uuid.Nil)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: topic}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/topics/{id}
func (h *TopicHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		h.unauthorized(w)
		return
	}

	topicID, ok := ParseTopicID(w, r, h.logger)
	if !ok {
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	topic, err := h.topicService.GetTopic(ctx, ownerID, topicID)
	if err != nil {
		h.writeTopicError(w, r, err, ownerID, topicID)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: topic}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/topics
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		h.unauthorized(w)
		return
	}

	filter, errs := parseListFilter(r)
	if errs != nil {
		if err := ValidationErrorResponse(w, errs); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	topics, err := h.topicService.ListTopics(ctx, ownerID, filter)
	if err != nil {
		h.writeTopicError(w, r, err, ownerID, uuid.Nil)
		return
	}

	response := TopicListResponse{
		Topics: topics,
		Total:  len(topics),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/topics/{id}
func (h *TopicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		h.unauthorized(w)
		return
	}

	topicID, ok := ParseTopicID(w, r, h.logger)
	if !ok {
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	if err := h.topicService.DeleteTopic(ctx, ownerID, topicID); err != nil {
		h.writeTopicError(w, r, err, ownerID, topicID)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// storeContext bounds a store round trip with the configured timeout.
func (h *TopicHandler) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.storeTimeout)
}

func (h *TopicHandler) unauthorized(w http.ResponseWriter) {
	if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeTopicError maps a service error onto the transport. Not-found is
// uniform for missing and cross-owner rows; anything else is logged with
// full context and surfaced as a generic 500.
func (h *TopicHandler) writeTopicError(w http.ResponseWriter, r *http.Request, err error, ownerID, topicID uuid.UUID) {
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "topic_not_found", "Topic not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if errors.Is(err, apperrors.ErrEmptyUpdate) {
		if err := ValidationErrorResponse(w, models.FieldErrors{
			{Field: "body", Message: "at least one field is required"},
		}); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Error("Topic operation failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("owner_id", ownerID.String()),
		zap.String("topic_id", topicID.String()),
		zap.Error(err))

	// Internal detail stays server-side.
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// parseListFilter reads the listing query parameters. Unknown sort
// columns are rejected here so the repository whitelist never sees them.
func parseListFilter(r *http.Request) (models.TopicFilter, models.FieldErrors) {
	var errs models.FieldErrors
	filter := models.TopicFilter{Limit: defaultListLimit}

	q := r.URL.Query()

	filter.Technology = q.Get("technology")

	if status := q.Get("status"); status != "" {
		s := models.TopicStatus(status)
		if !s.IsValid() {
			errs = append(errs, models.FieldError{Field: "status", Message: "unknown status value"})
		} else {
			filter.Status = s
		}
	}

	if parent := q.Get("parent_id"); parent != "" {
		parentID, err := uuid.Parse(parent)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "parent_id", Message: "must be a UUID"})
		} else {
			filter.ParentID = &parentID
		}
	}

	if sortBy := q.Get("sort"); sortBy != "" {
		switch sortBy {
		case "created_at", "updated_at", "title":
			filter.SortBy = sortBy
		default:
			errs = append(errs, models.FieldError{Field: "sort", Message: "must be one of created_at, updated_at, title"})
		}
	}
	switch q.Get("order") {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		errs = append(errs, models.FieldError{Field: "order", Message: "must be asc or desc"})
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxListLimit {
			errs = append(errs, models.FieldError{Field: "limit", Message: "must be an integer between 1 and 200"})
		} else {
			filter.Limit = limit
		}
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			errs = append(errs, models.FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			filter.Offset = offset
		}
	}

	if errs != nil {
		return models.TopicFilter{}, errs
	}
	return filter, nil
}
