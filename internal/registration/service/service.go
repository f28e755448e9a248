// Package service implements the registration lifecycle: intake, status
// transitions, deletion, and the audit trail that shadows each of them.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gmarup/internal/audit"
	"gmarup/internal/platform/metrics"
	"gmarup/internal/registration"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/platform/sentinel"
	"gmarup/pkg/requestcontext"
)

// Store is the persistence contract the service drives. Implementations must
// join the transaction carried by ctx.
type Store interface {
	Insert(ctx context.Context, reg *registration.Registration) (int64, error)
	FindByID(ctx context.Context, id int64) (*registration.Registration, error)
	UpdateStatus(ctx context.Context, id int64, status, notes string, updatedAt time.Time, lastContacted *time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteTrail(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*registration.Registration, error)
	AppendActivity(ctx context.Context, entry audit.Entry) error
	ListActivity(ctx context.Context, id int64) ([]audit.Entry, error)
}

// StoreTx provides the transactional boundary for multi-statement writes.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateRegistration carries a validated-enough intake submission. Client IP
// and User-Agent travel in the context via requestcontext.
type CreateRegistration struct {
	Name       string
	Email      string
	Phone      string
	Newsletter bool
	Source     string
	Notes      string
}

// Service persists registration lifecycle changes. It holds no entity state
// between calls; the store is the single source of truth.
type Service struct {
	store          Store
	tx             StoreTx
	metrics        *metrics.Metrics
	requireConsent bool
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithoutConsentRequirement disables the newsletter-consent policy for
// intake sources that collect consent elsewhere.
func WithoutConsentRequirement() Option {
	return func(s *Service) { s.requireConsent = false }
}

// NewService constructs the registration lifecycle service.
func NewService(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{store: store, tx: tx, requireConsent: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists one submission together with its creation
// trail row. Both inserts commit atomically.
func (s *Service) Create(ctx context.Context, req CreateRegistration) (int64, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if req.Email == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if req.Phone == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "phone is required")
	}
	if s.requireConsent && !req.Newsletter {
		return 0, dErrors.New(dErrors.CodeValidation, "email consent is required")
	}

	source := req.Source
	if source == "" {
		source = registration.DefaultSource
	}

	now := requestcontext.Now(ctx)
	reg := &registration.Registration{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Newsletter:   req.Newsletter,
		Source:       source,
		Status:       registration.StatusNew,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		AttemptCount: 1,
		LeadScore:    registration.DefaultLeadScore,
	}

	var id int64
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		insertedID, err := s.store.Insert(txCtx, reg)
		if err != nil {
			return err
		}
		id = insertedID
		return s.store.AppendActivity(txCtx, audit.Entry{
			EntityID:  id,
			Action:    audit.ActionRegistration,
			Details:   "new registration via " + source,
			CreatedAt: now,
		})
	})
	if err != nil {
		return 0, translateStoreErr(err, "failed to save registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	return id, nil
}

// UpdateStatus moves a registration to newStatus and records the transition.
// Any non-empty status string is accepted; last_contacted is stamped only on
// a transition to "contacted" and left untouched otherwise.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus, notes string) error {
	newStatus = strings.TrimSpace(newStatus)
	if newStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}

	now := requestcontext.Now(ctx)
	var lastContacted *time.Time
	if newStatus == registration.StatusContacted {
		lastContacted = &now
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateStatus(txCtx, id, newStatus, notes, now, lastContacted); err != nil {
			return err
		}
		return s.store.AppendActivity(txCtx, audit.Entry{
			EntityID:  id,
			Action:    audit.ActionStatusUpdate,
			Details:   "status changed to " + newStatus,
			CreatedAt: now,
		})
	})
	if err != nil {
		return translateStoreErr(err, "failed to update registration")
	}
	return nil
}

// Delete removes the registration and its whole trail in one transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.DeleteTrail(txCtx, id); err != nil {
			return err
		}
		return s.store.Delete(txCtx, id)
	})
	if err != nil {
		return translateStoreErr(err, "failed to delete registration")
	}
	return nil
}

// List returns every registration, newest first.
func (s *Service) List(ctx context.Context) ([]*registration.Registration, error) {
	regs, err := s.store.List(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list registrations")
	}
	return regs, nil
}

// Activity returns the audit trail for one registration, oldest first.
func (s *Service) Activity(ctx context.Context, id int64) ([]audit.Entry, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, translateStoreErr(err, "failed to load registration")
	}
	entries, err := s.store.ListActivity(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list registration activity")
	}
	return entries, nil
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
