package http

import (
	"log/slog"
	"net/http"
	"time"

	"gmarup/internal/http/shared"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
)

// healthHandler answers the connectivity probe with live row counts, which
// doubles as a smoke test that the schema is in place.
type healthHandler struct {
	logger *slog.Logger
	db     *storage.Store
}

func (h *healthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var registrations, donations int64
	row := h.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM registrations")
	if err := row.Scan(&registrations); err != nil {
		shared.WriteError(w, h.logger, dErrors.Wrap(err, dErrors.CodeUnavailable, "database unreachable"))
		return
	}
	row = h.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM donations")
	if err := row.Scan(&donations); err != nil {
		shared.WriteError(w, h.logger, dErrors.Wrap(err, dErrors.CodeUnavailable, "database unreachable"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, shared.Envelope{
		"message": "database connection ok",
		"stats": map[string]any{
			"registrations": registrations,
			"donations":     donations,
			"server_time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
