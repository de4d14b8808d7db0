package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/google/uuid"
)

// MemorySessionRepository keeps sessions in process memory. It applies the
// same optimistic locking as the database repository.
//
// Stored sessions are shallow copies; the session methods replace their
// slices and pointers rather than mutating them.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]session.Session
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]session.Session),
		now:      time.Now,
	}
}

// FindByID retrieves a live session.
func (r *MemorySessionRepository) FindByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.sessions[id]
	if !ok || stored.IsExpired(r.now()) {
		return nil, apperror.NewNotFoundError("Session", id.String())
	}
	cp := stored
	return &cp, nil
}

// Save persists a new session.
func (r *MemorySessionRepository) Save(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID()]; exists {
		return apperror.NewConflictError("session already exists")
	}
	r.sessions[s.ID()] = *s
	return nil
}

// Update persists changes when the stored version is the one s was loaded at.
func (r *MemorySessionRepository) Update(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID()]
	if !ok {
		return apperror.NewNotFoundError("Session", s.ID().String())
	}
	if stored.Version() != s.Version()-1 {
		return apperror.NewConflictError("session was modified by another request")
	}
	r.sessions[s.ID()] = *s
	return nil
}

// DeleteExpired removes sessions that expired at or before now.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// CountByStatus returns live session counts grouped by status.
func (r *MemorySessionRepository) CountByStatus(_ context.Context, now time.Time) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, s := range r.sessions {
		if !s.IsExpired(now) {
			counts[s.Status().String()]++
		}
	}
	return counts, nil
}

// Ping always succeeds.
func (r *MemorySessionRepository) Ping(context.Context) error {
	return nil
}
