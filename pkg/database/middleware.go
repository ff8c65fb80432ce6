package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devroad-io/devroad-api/pkg/auth"
)

// WithOwnerContext creates middleware that sets up an owner-scoped DB
// connection. It runs AFTER auth middleware and uses the user ID from JWT
// claims. The connection is automatically cleaned up after the handler
// returns.
func WithOwnerContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.Subject == "" {
				logger.Error("Missing caller identity in claims")
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing caller identity")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.Error("Invalid user ID format in claims",
					zap.String("subject", claims.Subject),
					zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			scope, err := db.WithOwner(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to acquire owner connection",
					zap.String("user_id", userID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			ctx := SetOwnerScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
