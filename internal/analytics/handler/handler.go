// Package handler exposes analytics event ingest and the admin listing.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gmarup/internal/analytics"
	"gmarup/internal/analytics/service"
	"gmarup/internal/http/shared"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
)

// Service is the analytics surface the handler drives.
type Service interface {
	Record(ctx context.Context, req service.RecordEvent) error
	List(ctx context.Context) ([]*analytics.Event, error)
}

// Handler serves the analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates an analytics Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register attaches the ingest dispatch route. Pages post here with an
// action field; track_analytics is the only recognized action.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/admin/actions", h.handleActions)
}

// RegisterAdmin attaches the admin listing.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/analytics", h.handleList)
}

type trackRequest struct {
	Action      string `json:"action"`
	SessionID   string `json:"sessionId"`
	Category    string `json:"category"`
	EventAction string `json:"eventAction"`
	Label       string `json:"label"`
	Value       *int64 `json:"value"`
	URL         string `json:"url"`
}

func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeTrackRequest(r)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	if req.Action != "track_analytics" {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "unknown action"))
		return
	}

	record := service.RecordEvent{
		SessionID: req.SessionID,
		Category:  req.Category,
		Action:    req.EventAction,
		Value:     req.Value,
		URL:       req.URL,
	}
	if record.Category == "" {
		record.Category = "Page"
	}
	if record.Action == "" {
		record.Action = "visit"
	}
	if record.URL == "" {
		record.URL = "/"
	}
	if req.Label != "" {
		record.Label = &req.Label
	}

	if err := h.service.Record(ctx, record); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"message": "analytics tracked"})
}

// decodeTrackRequest accepts JSON and classic form posts; the beacon API on
// some of the pages can only send the latter.
func decodeTrackRequest(r *http.Request) (trackRequest, error) {
	var req trackRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return req, dErrors.New(dErrors.CodeBadRequest, "invalid form body")
		}
		req.Action = r.PostFormValue("action")
		req.SessionID = r.PostFormValue("sessionId")
		req.Category = r.PostFormValue("category")
		req.EventAction = r.PostFormValue("eventAction")
		req.Label = r.PostFormValue("label")
		req.URL = r.PostFormValue("url")
		if raw := r.PostFormValue("value"); raw != "" {
			value, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return req, dErrors.New(dErrors.CodeBadRequest, "invalid value field")
			}
			req.Value = &value
		}
		return req, nil
	}
	if err := shared.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	return req, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(events))
	for _, event := range events {
		item := map[string]any{
			"id":         event.ID,
			"session_id": event.SessionID,
			"category":   event.Category,
			"action":     event.Action,
			"url":        event.URL,
			"ip_address": event.IPAddress,
			"created_at": storage.FormatTime(event.CreatedAt),
		}
		if event.Label != nil {
			item["label"] = *event.Label
		}
		if event.Value != nil {
			item["value"] = *event.Value
		}
		items = append(items, item)
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{"analytics": items})
}
