// Package service exposes the settings registry on two surfaces: a public
// read limited to an allow-list with built-in defaults, and an admin surface
// over the full table.
package service

import (
	"context"
	"errors"
	"strings"

	"gmarup/internal/platform/metrics"
	"gmarup/internal/settings"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/platform/sentinel"
	"gmarup/pkg/requestcontext"
)

// Store is the persistence contract the service drives.
type Store interface {
	GetAll(ctx context.Context) (map[string]string, error)
	GetKeys(ctx context.Context, keys []string) (map[string]string, error)
	Upsert(ctx context.Context, setting settings.Setting) error
}

// StoreTx provides the transactional boundary for batch writes.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service reads and writes the settings registry. The public default map is
// fixed at construction and never mutated.
type Service struct {
	store    Store
	tx       StoreTx
	metrics  *metrics.Metrics
	defaults map[string]string
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the settings service with the built-in public
// defaults.
func NewService(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{store: store, tx: tx, defaults: settings.PublicDefaults()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Public returns the allow-listed settings. Every public key is always
// present: the stored value when one exists, the built-in default otherwise.
func (s *Service) Public(ctx context.Context) (map[string]string, error) {
	keys := make([]string, 0, len(s.defaults))
	for key := range s.defaults {
		keys = append(keys, key)
	}

	stored, err := s.store.GetKeys(ctx, keys)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load settings")
	}

	result := settings.PublicDefaults()
	for key, value := range stored {
		result[key] = value
	}
	return result, nil
}

// Admin returns every stored setting, with no defaults overlaid and no
// allow-list applied.
func (s *Service) Admin(ctx context.Context) (map[string]string, error) {
	values, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load settings")
	}
	return values, nil
}

// Update upserts the given key/value pairs in one transaction. Either every
// pair is written or none is.
func (s *Service) Update(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no settings provided")
	}
	for key := range values {
		if strings.TrimSpace(key) == "" {
			return dErrors.New(dErrors.CodeValidation, "setting key cannot be empty")
		}
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for key, value := range values {
			setting := settings.Setting{Key: key, Value: value, UpdatedAt: now}
			if err := s.store.Upsert(txCtx, setting); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateStoreErr(err, "failed to update settings")
	}

	if s.metrics != nil {
		s.metrics.SettingsUpdates.Add(float64(len(values)))
	}
	return nil
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
