// Package handler exposes registration intake and its admin surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gmarup/internal/audit"
	"gmarup/internal/http/shared"
	"gmarup/internal/registration"
	"gmarup/internal/registration/service"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
)

// Service is the registration lifecycle surface the handler drives.
type Service interface {
	Create(ctx context.Context, req service.CreateRegistration) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status, notes string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*registration.Registration, error)
	Activity(ctx context.Context, id int64) ([]audit.Entry, error)
}

// Handler serves the registration endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a registration Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register attaches the public intake route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/register", h.handleCreate)
}

// RegisterAdmin attaches the admin routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/registrations", h.handleList)
	r.Get("/api/admin/registrations/{id}/activity", h.handleActivity)
	r.Post("/api/admin/registration", h.handleAdminAction)
}

// createRequest mirrors the intake form field names.
type createRequest struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	EmailConsent bool   `json:"emailConsent"`
	Source       string `json:"source"`
	StudyLevel   string `json:"studyLevel"`
	Notes        string `json:"notes"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	notes := req.Notes
	if notes == "" && req.StudyLevel != "" {
		notes = "study level: " + req.StudyLevel
	}

	id, err := h.service.Create(ctx, service.CreateRegistration{
		Name:       req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		Newsletter: req.EmailConsent,
		Source:     req.Source,
		Notes:      notes,
	})
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "registration created", "registration_id", id)
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{
		"registration_id": id,
		"message":         "registration received",
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(regs))
	for _, reg := range regs {
		items = append(items, registrationJSON(reg))
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"registrations": items})
}

// adminActionRequest drives both update and delete through one endpoint,
// selected by the action field.
type adminActionRequest struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminActionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	if req.ID == 0 {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeValidation, "registration id is required"))
		return
	}

	switch req.Action {
	case "delete":
		if err := h.service.Delete(ctx, req.ID); err != nil {
			shared.WriteError(w, h.logger, err)
			return
		}
		h.logger.InfoContext(ctx, "registration deleted", "registration_id", req.ID)
		shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "registration deleted"})
	case "", "update":
		if err := h.service.UpdateStatus(ctx, req.ID, req.Status, req.Notes); err != nil {
			shared.WriteError(w, h.logger, err)
			return
		}
		h.logger.InfoContext(ctx, "registration updated", "registration_id", req.ID, "status", req.Status)
		shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "registration updated"})
	default:
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "unknown action"))
	}
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return
	}

	entries, err := h.service.Activity(r.Context(), id)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"id":         entry.ID,
			"lead_id":    entry.EntityID,
			"action":     entry.Action,
			"details":    entry.Details,
			"created_at": storage.FormatTime(entry.CreatedAt),
		})
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"activity": items})
}

func registrationJSON(reg *registration.Registration) map[string]any {
	item := map[string]any{
		"id":            reg.ID,
		"name":          reg.Name,
		"email":         reg.Email,
		"phone":         reg.Phone,
		"newsletter":    reg.Newsletter,
		"source":        reg.Source,
		"status":        reg.Status,
		"notes":         reg.Notes,
		"lead_score":    reg.LeadScore,
		"attempt_count": reg.AttemptCount,
		"created_at":    storage.FormatTime(reg.CreatedAt),
		"updated_at":    storage.FormatTime(reg.UpdatedAt),
	}
	if reg.LastContacted != nil {
		item["last_contacted"] = storage.FormatTime(*reg.LastContacted)
	}
	return item
}
