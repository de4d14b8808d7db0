package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionModel is the GORM model for the routing_sessions table.
type SessionModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Status           string          `gorm:"not null;size:20;index"`
	Origin           json.RawMessage `gorm:"type:jsonb;not null"`
	Destination      json.RawMessage `gorm:"type:jsonb;not null"`
	SnappedFrom      json.RawMessage `gorm:"type:jsonb;not null"`
	SnappedTo        json.RawMessage `gorm:"type:jsonb;not null"`
	Timezone         string          `gorm:"size:64"`
	Routes           json.RawMessage `gorm:"type:jsonb"`
	Selection        json.RawMessage `gorm:"type:jsonb;not null"`
	Generation       int64           `gorm:"not null;default:0"`
	LastError        string          `gorm:"size:1000"`
	Summary          json.RawMessage `gorm:"type:jsonb"`
	SummarySignature string          `gorm:"size:1000"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
	ExpiresAt        time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (SessionModel) TableName() string {
	return "routing_sessions"
}

// GormSessionRepository is the GORM-based implementation of session.Repository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID retrieves a live session by its unique identifier.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now().UTC()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Session", id.String())
		}
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}
	return toDomainSession(&model)
}

// Save persists a new session.
func (r *GormSessionRepository) Save(ctx context.Context, s *session.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update persists changes to an existing session with optimistic locking.
func (r *GormSessionRepository) Update(ctx context.Context, s *session.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	// IncrementVersion was already called, so the stored row holds version-1.
	expectedVersion := s.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":            model.Status,
			"origin":            model.Origin,
			"destination":       model.Destination,
			"snapped_from":      model.SnappedFrom,
			"snapped_to":        model.SnappedTo,
			"routes":            model.Routes,
			"selection":         model.Selection,
			"generation":        model.Generation,
			"last_error":        model.LastError,
			"summary":           model.Summary,
			"summary_signature": model.SummarySignature,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
			"expires_at":        model.ExpiresAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&SessionModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if count == 0 {
			return apperror.NewNotFoundError("Session", model.ID.String())
		}
		return apperror.NewConflictError("session was modified by another request")
	}

	return nil
}

// DeleteExpired removes sessions that expired at or before now.
func (r *GormSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&SessionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByStatus returns live session counts grouped by status (admin).
func (r *GormSessionRepository) CountByStatus(ctx context.Context, now time.Time) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&SessionModel{}).
		Select("status, count(*) as count").
		Where("expires_at > ?", now).
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Ping checks the database connection for readiness probes.
func (r *GormSessionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// --- Conversion Helpers ---

func toSessionModel(s *session.Session) (*SessionModel, error) {
	originJSON, err := json.Marshal(s.Origin())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal origin: %w", err)
	}

	destinationJSON, err := json.Marshal(s.Destination())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal destination: %w", err)
	}

	fromJSON, err := json.Marshal(s.SnappedFrom())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapped origin: %w", err)
	}

	toJSON, err := json.Marshal(s.SnappedTo())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapped destination: %w", err)
	}

	selectionJSON, err := json.Marshal(s.Selection())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal selection: %w", err)
	}

	var routesJSON json.RawMessage
	if len(s.Routes()) > 0 {
		data, err := json.Marshal(s.Routes())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal routes: %w", err)
		}
		routesJSON = data
	}

	var summaryJSON json.RawMessage
	if s.Summary() != nil {
		data, err := json.Marshal(s.Summary())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal summary: %w", err)
		}
		summaryJSON = data
	}

	return &SessionModel{
		ID:               s.ID(),
		Status:           s.Status().String(),
		Origin:           originJSON,
		Destination:      destinationJSON,
		SnappedFrom:      fromJSON,
		SnappedTo:        toJSON,
		Timezone:         s.Timezone(),
		Routes:           routesJSON,
		Selection:        selectionJSON,
		Generation:       s.Generation(),
		LastError:        s.LastError(),
		Summary:          summaryJSON,
		SummarySignature: s.SummarySignature(),
		Version:          s.Version(),
		CreatedAt:        s.CreatedAt(),
		UpdatedAt:        s.UpdatedAt(),
		ExpiresAt:        s.ExpiresAt(),
	}, nil
}

func toDomainSession(m *SessionModel) (*session.Session, error) {
	var origin, destination route.Coordinate
	if err := json.Unmarshal(m.Origin, &origin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal origin: %w", err)
	}
	if err := json.Unmarshal(m.Destination, &destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination: %w", err)
	}

	var from, to route.Waypoint
	if err := json.Unmarshal(m.SnappedFrom, &from); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapped origin: %w", err)
	}
	if err := json.Unmarshal(m.SnappedTo, &to); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapped destination: %w", err)
	}

	var selection route.SelectionState
	if err := json.Unmarshal(m.Selection, &selection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}

	var routes []route.RouteView
	if len(m.Routes) > 0 {
		if err := json.Unmarshal(m.Routes, &routes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal routes: %w", err)
		}
	}

	var result *summary.Result
	if len(m.Summary) > 0 {
		var sr summary.Result
		if err := json.Unmarshal(m.Summary, &sr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		result = &sr
	}

	status, err := session.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return session.ReconstructSession(
		m.ID,
		status,
		origin,
		destination,
		from,
		to,
		m.Timezone,
		routes,
		selection,
		m.Generation,
		m.LastError,
		result,
		m.SummarySignature,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
		m.ExpiresAt,
	), nil
}
