// Package handler exposes donation intake and its admin surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gmarup/internal/donation"
	"gmarup/internal/donation/service"
	"gmarup/internal/http/shared"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
)

// Service is the donation lifecycle surface the handler drives.
type Service interface {
	Create(ctx context.Context, req service.CreateDonation) (*service.Pledge, error)
	UpdateStatus(ctx context.Context, id int64, status, transactionID string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*donation.Donation, error)
	FindByPublicID(ctx context.Context, publicID string) (*donation.Donation, error)
}

// Handler serves the donation endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a donation Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register attaches the public pledge route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/donate", h.handleCreate)
	r.Get("/api/donate/{donationID}", h.handleStatus)
}

// RegisterAdmin attaches the admin routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/donations", h.handleList)
	r.Post("/api/admin/donation", h.handleAdminAction)
}

type createRequest struct {
	Amount      float64 `json:"amount"`
	DonorName   string  `json:"donor_name"`
	DonorEmail  string  `json:"donor_email"`
	DonorPhone  string  `json:"donor_phone"`
	Message     string  `json:"message"`
	IsAnonymous bool    `json:"is_anonymous"`
	Source      string  `json:"source"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	pledge, err := h.service.Create(ctx, service.CreateDonation{
		Amount:      req.Amount,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		DonorPhone:  req.DonorPhone,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
		Source:      req.Source,
	})
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "donation created", "donation_id", pledge.PublicID, "amount", req.Amount)
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{
		"donation_id": pledge.PublicID,
		"payment_url": pledge.PaymentURL,
		"message":     "donation created, awaiting payment",
	})
}

// handleStatus lets a donor poll payment state with the shareable id. Donor
// contact details stay out of the response.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	don, err := h.service.FindByPublicID(r.Context(), chi.URLParam(r, "donationID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	payload := shared.Envelope{
		"donation_id": don.PublicID,
		"amount":      don.Amount,
		"status":      don.Status,
		"created_at":  storage.FormatTime(don.CreatedAt),
	}
	if don.CompletedAt != nil {
		payload["completed_at"] = storage.FormatTime(*don.CompletedAt)
	}
	shared.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	dons, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(dons))
	for _, don := range dons {
		items = append(items, donationJSON(don))
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"donations": items})
}

type adminActionRequest struct {
	ID            int64  `json:"id"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (h *Handler) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminActionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	if req.ID == 0 {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeValidation, "donation id is required"))
		return
	}

	switch req.Action {
	case "delete":
		if err := h.service.Delete(ctx, req.ID); err != nil {
			shared.WriteError(w, h.logger, err)
			return
		}
		h.logger.InfoContext(ctx, "donation deleted", "donation_id", req.ID)
		shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "donation deleted"})
	case "", "update":
		if err := h.service.UpdateStatus(ctx, req.ID, req.Status, req.TransactionID); err != nil {
			shared.WriteError(w, h.logger, err)
			return
		}
		h.logger.InfoContext(ctx, "donation updated", "donation_id", req.ID, "status", req.Status)
		shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "donation updated"})
	default:
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "unknown action"))
	}
}

func donationJSON(don *donation.Donation) map[string]any {
	item := map[string]any{
		"id":             don.ID,
		"donation_id":    don.PublicID,
		"amount":         don.Amount,
		"donor_name":     don.DonorName,
		"donor_email":    don.DonorEmail,
		"donor_phone":    don.DonorPhone,
		"message":        don.Message,
		"is_anonymous":   don.IsAnonymous,
		"source":         don.Source,
		"status":         don.Status,
		"payment_method": don.PaymentMethod,
		"created_at":     storage.FormatTime(don.CreatedAt),
	}
	if don.TransactionID != nil {
		item["transaction_id"] = *don.TransactionID
	}
	if don.CompletedAt != nil {
		item["completed_at"] = storage.FormatTime(*don.CompletedAt)
	}
	return item
}
