package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OwnerScope wraps a connection with the caller's identity and ensures
// cleanup. The connection has app.current_user_id set for RLS policy
// evaluation, so row-level policies enforce the owner filter server-side
// in addition to the WHERE clauses repositories build.
type OwnerScope struct {
	// Conn is what repositories execute against. It is an interface so
	// tests can substitute a mock pool.
	Conn Querier

	pooled *pgxpool.Conn
}

// Close resets the owner context and releases the connection to the pool.
// This MUST be called to prevent the identity from leaking to the next request.
func (s *OwnerScope) Close() {
	if s.pooled == nil {
		return
	}
	_, _ = s.pooled.Exec(context.Background(), "RESET app.current_user_id")
	s.pooled.Release()
}

// WithOwner acquires a connection and sets the caller identity for RLS.
// The returned OwnerScope MUST be closed with defer scope.Close().
func (db *DB) WithOwner(ctx context.Context, userID uuid.UUID) (*OwnerScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_user_id', $1, false)", userID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &OwnerScope{Conn: conn, pooled: conn}, nil
}
