// Package service ingests analytics events. Ingest is best effort: a store
// failure is logged and counted, never surfaced to the submitting client.
package service

import (
	"context"
	"log/slog"
	"strings"

	"gmarup/internal/analytics"
	"gmarup/internal/platform/metrics"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/requestcontext"
)

// defaultListLimit caps the admin event listing.
const defaultListLimit = 200

// Store is the persistence contract the service drives.
type Store interface {
	Insert(ctx context.Context, event *analytics.Event) error
	List(ctx context.Context, limit int) ([]*analytics.Event, error)
}

// RecordEvent carries one client-side event report.
type RecordEvent struct {
	SessionID string
	Category  string
	Action    string
	Label     *string
	Value     *int64
	URL       string
}

// Service writes and lists analytics events.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the analytics ingest service.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates and stores one event. Validation failures are returned;
// persistence failures are swallowed after logging so a flaky store never
// breaks the pages reporting events.
func (s *Service) Record(ctx context.Context, req RecordEvent) error {
	req.Category = strings.TrimSpace(req.Category)
	req.Action = strings.TrimSpace(req.Action)

	if req.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if req.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}

	event := &analytics.Event{
		SessionID: req.SessionID,
		Category:  req.Category,
		Action:    req.Action,
		Label:     req.Label,
		Value:     req.Value,
		URL:       req.URL,
		IPAddress: requestcontext.ClientIP(ctx),
		CreatedAt: requestcontext.Now(ctx),
	}

	if err := s.store.Insert(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "dropping analytics event",
			"category", event.Category,
			"action", event.Action,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.AnalyticsDropped.Inc()
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.AnalyticsEvents.Inc()
	}
	return nil
}

// List returns the most recent events for the admin surface.
func (s *Service) List(ctx context.Context) ([]*analytics.Event, error) {
	events, err := s.store.List(ctx, defaultListLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list analytics events")
	}
	return events, nil
}
