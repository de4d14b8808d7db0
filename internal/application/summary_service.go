package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummaryConfig tunes the summary service.
type SummaryConfig struct {
	SessionTTL time.Duration
	// AutoSelect focuses the suggested route as soon as a summary arrives.
	AutoSelect bool
}

// SummaryService asks the text generation service to compare a session's
// routes and records the answer and its suggested route.
type SummaryService struct {
	repo       session.Repository
	summarizer summary.Summarizer
	publisher  EventPublisher
	cfg        SummaryConfig
	now        func() time.Time
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(
	repo session.Repository,
	summarizer summary.Summarizer,
	publisher EventPublisher,
	cfg SummaryConfig,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		repo:       repo,
		summarizer: summarizer,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
		metrics:    recorder,
		logger:     logger,
	}
}

// WithClock overrides the time source used for time-of-day classification.
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// SummarizeSession summarizes the session's current route set. Unless force
// is set, a route set that was already summarized returns summary.ErrUnchanged
// without calling out. A summary for a route set replaced in the meantime is
// dropped with summary.ErrStale.
func (s *SummaryService) SummarizeSession(ctx context.Context, id uuid.UUID, force bool) (*summary.Result, error) {
	log := s.logger.With(zap.String("session_id", id.String()))

	var sig string
	sess, err := mutateSession(ctx, s.repo, s.cfg.SessionTTL, id, func(sess *session.Session) error {
		var err error
		sig, err = sess.BeginSummary(force)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, summary.ErrUnchanged):
			s.metrics.SummaryResult("suppressed")
			log.Debug("summary suppressed, route set unchanged")
		case errors.Is(err, summary.ErrNoRoutes):
			s.metrics.SummaryResult("no_routes")
		}
		return nil, err
	}

	views := sess.Routes()
	band := summary.ClassifyTimeOfDay(s.now().In(sess.Location()))
	payload := summary.BuildPayload(views, sess.Selection().SelectedIndex, band)
	document, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary payload: %w", err)
	}

	text, err := s.summarizer.Summarize(ctx, summary.Prompt, document)
	if err != nil {
		s.metrics.SummaryResult("failed")
		log.Warn("summary request failed", zap.Error(err))
		return nil, err
	}

	result := summary.Result{
		Text:        text,
		Signature:   sig,
		TimeBand:    band,
		GeneratedAt: s.now().UTC(),
	}
	if idx, ok := summary.ParseSuggestedIndex(text, len(views)); ok {
		result.SuggestedIndex = &idx
	}

	_, err = mutateSession(ctx, s.repo, s.cfg.SessionTTL, id, func(sess *session.Session) error {
		if err := sess.ApplySummary(result); err != nil {
			return err
		}
		if s.cfg.AutoSelect && result.SuggestedIndex != nil {
			return sess.SelectRouteOnly(*result.SuggestedIndex)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, summary.ErrStale) {
			s.metrics.SummaryResult("stale")
			log.Info("discarding summary for superseded route set")
		}
		return nil, err
	}

	s.metrics.SummaryResult("stored")
	log.Info("summary stored",
		zap.String("time_band", string(band)),
		zap.Bool("has_suggestion", result.SuggestedIndex != nil),
	)

	publishEvent(ctx, s.publisher, s.logger, contracts.SummaryGenerated, id.String(), contracts.SummaryGeneratedEvent{
		SessionID:      id,
		Signature:      sig,
		SuggestedIndex: result.SuggestedIndex,
		OccurredAt:     time.Now().UTC(),
	})
	return &result, nil
}

// GetSummary returns the latest stored summary of a session, or nil.
func (s *SummaryService) GetSummary(ctx context.Context, id uuid.UUID) (*summary.Result, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Summary(), nil
}
