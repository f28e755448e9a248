// Package service implements the donation lifecycle: pledge intake with a
// collision-safe public id, payment link construction, status transitions,
// and the activity trail that shadows each write.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gmarup/internal/audit"
	"gmarup/internal/donation"
	"gmarup/internal/platform/metrics"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/platform/sentinel"
	"gmarup/pkg/requestcontext"
)

// maxIDAttempts bounds public id generation retries on a duplicate.
const maxIDAttempts = 3

// Store is the persistence contract the service drives. Implementations must
// join the transaction carried by ctx.
type Store interface {
	Insert(ctx context.Context, don *donation.Donation) (int64, error)
	FindByID(ctx context.Context, id int64) (*donation.Donation, error)
	FindByPublicID(ctx context.Context, publicID string) (*donation.Donation, error)
	UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error
	SetTransactionID(ctx context.Context, id int64, transactionID string) error
	Delete(ctx context.Context, id int64) error
	DeleteTrail(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*donation.Donation, error)
	AppendActivity(ctx context.Context, entry audit.Entry) error
	ListActivity(ctx context.Context, id int64) ([]audit.Entry, error)
}

// StoreTx provides the transactional boundary for multi-statement writes.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateDonation carries one pledge submission. Client IP and User-Agent
// travel in the context via requestcontext.
type CreateDonation struct {
	Amount      float64
	DonorName   string
	DonorEmail  string
	DonorPhone  string
	Message     string
	IsAnonymous bool
	Source      string
}

// Pledge is what intake hands back to the caller: the shareable id and the
// link the donor follows to pay.
type Pledge struct {
	PublicID   string
	PaymentURL string
}

// Service persists donation lifecycle changes. The store is the single
// source of truth; nothing is cached between calls.
type Service struct {
	store      Store
	tx         StoreTx
	metrics    *metrics.Metrics
	paymentURL string
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the donation lifecycle service. paymentURLTemplate
// must contain one %s verb for the amount.
func NewService(store Store, tx StoreTx, paymentURLTemplate string, opts ...Option) *Service {
	s := &Service{store: store, tx: tx, paymentURL: paymentURLTemplate}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists one pledge together with its creation trail
// row. The public id embeds the creation second plus a random suffix; a
// duplicate id triggers regeneration with a wider suffix, up to
// maxIDAttempts, before the conflict is surfaced.
func (s *Service) Create(ctx context.Context, req CreateDonation) (*Pledge, error) {
	req.DonorName = strings.TrimSpace(req.DonorName)
	req.DonorEmail = strings.TrimSpace(req.DonorEmail)
	req.DonorPhone = strings.TrimSpace(req.DonorPhone)

	if req.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if req.DonorName == "" {
		req.DonorName = donation.DefaultDonorName
	}

	source := req.Source
	if source == "" {
		source = donation.DefaultSource
	}

	now := requestcontext.Now(ctx)
	don := &donation.Donation{
		Amount:        req.Amount,
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		DonorPhone:    req.DonorPhone,
		Message:       req.Message,
		IsAnonymous:   req.IsAnonymous,
		Source:        source,
		Status:        donation.StatusPending,
		PaymentMethod: donation.DefaultPaymentMethod,
		CreatedAt:     now,
		IPAddress:     requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}

	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		don.PublicID = donation.NewPublicID(now, attempt)

		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			id, err := s.store.Insert(txCtx, don)
			if err != nil {
				return err
			}
			don.ID = id
			return s.store.AppendActivity(txCtx, audit.Entry{
				EntityID:  id,
				Action:    audit.ActionCreated,
				Details:   "donation pledged via " + source,
				CreatedAt: now,
			})
		})
		if err == nil {
			if s.metrics != nil {
				s.metrics.DonationsCreated.Inc()
			}
			return &Pledge{
				PublicID:   don.PublicID,
				PaymentURL: s.buildPaymentURL(don.Amount, don.PublicID),
			}, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, translateStoreErr(err, "failed to save donation")
		}
		lastErr = err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeConflict, "could not allocate a unique donation id")
}

// UpdateStatus moves a donation to newStatus and records the transition.
// completed_at is stamped on every transition to "completed", including a
// repeat one, and is never cleared by other statuses.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus, transactionID string) error {
	newStatus = strings.TrimSpace(newStatus)
	if newStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}

	now := requestcontext.Now(ctx)
	var completedAt *time.Time
	if newStatus == donation.StatusCompleted {
		completedAt = &now
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateStatus(txCtx, id, newStatus, completedAt); err != nil {
			return err
		}
		if transactionID != "" {
			if err := s.store.SetTransactionID(txCtx, id, transactionID); err != nil {
				return err
			}
		}
		return s.store.AppendActivity(txCtx, audit.Entry{
			EntityID:  id,
			Action:    audit.ActionStatusUpdate,
			Details:   "status changed to " + newStatus,
			CreatedAt: now,
		})
	})
	if err != nil {
		return translateStoreErr(err, "failed to update donation")
	}

	if s.metrics != nil && newStatus == donation.StatusCompleted {
		s.metrics.DonationsCompleted.Inc()
	}
	return nil
}

// Delete removes the donation and its whole trail in one transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.DeleteTrail(txCtx, id); err != nil {
			return err
		}
		return s.store.Delete(txCtx, id)
	})
	if err != nil {
		return translateStoreErr(err, "failed to delete donation")
	}
	return nil
}

// List returns every donation, newest first.
func (s *Service) List(ctx context.Context) ([]*donation.Donation, error) {
	dons, err := s.store.List(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list donations")
	}
	return dons, nil
}

// FindByPublicID resolves a shareable donation id to the full record.
func (s *Service) FindByPublicID(ctx context.Context, publicID string) (*donation.Donation, error) {
	don, err := s.store.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load donation")
	}
	return don, nil
}

// Activity returns the audit trail for one donation, oldest first.
func (s *Service) Activity(ctx context.Context, id int64) ([]audit.Entry, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, translateStoreErr(err, "failed to load donation")
	}
	entries, err := s.store.ListActivity(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list donation activity")
	}
	return entries, nil
}

// buildPaymentURL fills the merchant template with the amount and appends the
// public id as a reference so the payment can be reconciled later.
func (s *Service) buildPaymentURL(amount float64, publicID string) string {
	formatted := strconv.FormatFloat(amount, 'f', -1, 64)
	return fmt.Sprintf(s.paymentURL, formatted) + "&ref=" + publicID
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
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
