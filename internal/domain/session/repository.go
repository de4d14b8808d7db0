package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for planning sessions.
type Repository interface {
	// FindByID retrieves a live session. Expired sessions are reported as not found.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// Save persists a new session.
	Save(ctx context.Context, s *Session) error

	// Update persists changes to an existing session with optimistic locking.
	Update(ctx context.Context, s *Session) error

	// DeleteExpired removes sessions whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountByStatus returns live session counts grouped by status.
	CountByStatus(ctx context.Context, now time.Time) (map[string]int64, error)
}
