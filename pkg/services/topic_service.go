package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devroad-io/devroad-api/pkg/apperrors"
	"github.com/devroad-io/devroad-api/pkg/models"
	"github.com/devroad-io/devroad-api/pkg/repositories"
)

// TopicService provides operations for managing a user's topics.
// Every operation is scoped to the supplied owner identity; the service
// never observes, and so never leaks, topics belonging to anyone else.
type TopicService interface {
	// CreateTopic validates and stores a new topic for the owner.
	CreateTopic(ctx context.Context, ownerID uuid.UUID, create *models.TopicCreate) (*models.Topic, error)

	// GetTopic returns one owned topic, or apperrors.ErrNotFound.
	GetTopic(ctx context.Context, ownerID, topicID uuid.UUID) (*models.Topic, error)

	// ListTopics returns the owner's topics narrowed by filter.
	ListTopics(ctx context.Context, ownerID uuid.UUID, filter models.TopicFilter) ([]*models.Topic, error)

	// UpdateTopic applies a validated partial update and returns the
	// fresh row. A topic that is absent or owned by someone else is
	// apperrors.ErrNotFound either way.
	UpdateTopic(ctx context.Context, ownerID, topicID uuid.UUID, patch *models.TopicPatch) (*models.Topic, error)

	// DeleteTopic removes one owned topic, or returns apperrors.ErrNotFound.
	DeleteTopic(ctx context.Context, ownerID, topicID uuid.UUID) error
}

type topicService struct {
	repo   repositories.TopicRepository
	logger *zap.Logger
}

// NewTopicService creates a new TopicService.
func NewTopicService(repo repositories.TopicRepository, logger *zap.Logger) TopicService {
	return &topicService{
		repo:   repo,
		logger: logger,
	}
}

var _ TopicService = (*topicService)(nil)

func (s *topicService) CreateTopic(ctx context.Context, ownerID uuid.UUID, create *models.TopicCreate) (*models.Topic, error) {
	if errs := create.Validate(); errs != nil {
		return nil, errs
	}

	// The FK alone cannot enforce parent ownership: referential
	// integrity checks run as the table owner and bypass row security.
	// Resolve the parent through the owner-scoped lookup so a foreign
	// parent id is rejected without confirming it exists.
	if create.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, ownerID, *create.ParentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, models.FieldErrors{
					{Field: "parent_id", Message: "parent topic not found"},
				}
			}
			s.logger.Error("Failed to resolve parent topic",
				zap.String("owner_id", ownerID.String()),
				zap.String("parent_id", create.ParentID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("resolve parent topic: %w", err)
		}
	}

	topic := &models.Topic{
		OwnerID:       ownerID,
		ParentID:      create.ParentID,
		Title:         create.Title,
		Description:   create.Description,
		Status:        create.Status,
		Technology:    create.Technology,
		LeetcodeLinks: create.LeetcodeLinks,
	}

	if err := s.repo.Create(ctx, topic); err != nil {
		s.logger.Error("Failed to create topic",
			zap.String("owner_id", ownerID.String()),
			zap.String("title", create.Title),
			zap.Error(err))
		return nil, fmt.Errorf("create topic: %w", err)
	}

	return topic, nil
}

func (s *topicService) GetTopic(ctx context.Context, ownerID, topicID uuid.UUID) (*models.Topic, error) {
	topic, err := s.repo.GetByID(ctx, ownerID, topicID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to get topic",
			zap.String("owner_id", ownerID.String()),
			zap.String("topic_id", topicID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

func (s *topicService) ListTopics(ctx context.Context, ownerID uuid.UUID, filter models.TopicFilter) ([]*models.Topic, error) {
	topics, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		s.logger.Error("Failed to list topics",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("list topics: %w", err)
	}
	if topics == nil {
		topics = []*models.Topic{}
	}
	return topics, nil
}

func (s *topicService) UpdateTopic(ctx context.Context, ownerID, topicID uuid.UUID, patch *models.TopicPatch) (*models.Topic, error) {
	if !patch.HasChanges() {
		return nil, apperrors.ErrEmptyUpdate
	}

	topic, err := s.repo.Update(ctx, ownerID, topicID, patch)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Deliberately quiet: this is the uniform outcome for both a
			// missing row and someone else's row.
			return nil, err
		}
		s.logger.Error("Failed to update topic",
			zap.String("owner_id", ownerID.String()),
			zap.String("topic_id", topicID.String()),
			zap.Strings("fields", patch.Fields()),
			zap.Time("attempted_at", time.Now().UTC()),
			zap.Error(err))
		return nil, fmt.Errorf("update topic: %w", err)
	}

	return topic, nil
}

func (s *topicService) DeleteTopic(ctx context.Context, ownerID, topicID uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, topicID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		s.logger.Error("Failed to delete topic",
			zap.String("owner_id", ownerID.String()),
			zap.String("topic_id", topicID.String()),
			zap.Error(err))
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}
