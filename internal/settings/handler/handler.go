// Package handler exposes the settings registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gmarup/internal/http/shared"
)

// Service is the settings surface the handler drives.
type Service interface {
	Public(ctx context.Context) (map[string]string, error)
	Admin(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, values map[string]string) error
}

// Handler serves the settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a settings Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register attaches the public read route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/settings", h.handlePublic)
}

// RegisterAdmin attaches the admin routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/settings", h.handleAdmin)
	r.Post("/api/admin/settings", h.handleUpdate)
}

func (h *Handler) handlePublic(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Public(r.Context())
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"settings": values})
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Admin(r.Context())
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"settings": values})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var values map[string]string
	if err := shared.DecodeJSON(r, &values); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	if err := h.service.Update(ctx, values); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "settings updated", "count", len(values))
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "settings updated"})
}
