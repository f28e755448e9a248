// Package shared holds the JSON response helpers every handler uses. All
// responses carry a success flag so browser clients can branch without
// inspecting status codes.
package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "gmarup/pkg/domain-errors"
)

// Envelope is the common response shape.
type Envelope map[string]any

// WriteJSON writes payload with the success flag set. Extra top-level fields
// in payload are preserved.
func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	if payload == nil {
		payload = Envelope{}
	}
	if _, ok := payload["success"]; !ok {
		payload["success"] = status < http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps a domain error code to an HTTP status and writes the
// failure envelope. Internal detail stays in the log, not the response body.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	message := "internal server error"
	var dErr *dErrors.Error
	if errors.As(err, &dErr) && status < http.StatusInternalServerError {
		message = dErr.Message
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err)
	}
	WriteJSON(w, status, Envelope{"success": false, "error": message})
}

// DecodeJSON parses the request body into dst, rejecting unknown shapes
// loosely enough for small hand-written frontends.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid json body")
	}
	return nil
}
