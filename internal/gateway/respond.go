package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dohr-michael/todoia/internal/apperr"
)

// envelope is the uniform response body of every REST endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

// writeError is the single place where errors become responses. Causes of
// store and internal errors are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	kind := apperr.KindOf(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r).Error("request failed", "kind", kind, "status", status, "error", err)
	} else {
		requestLogger(r).Debug("request rejected", "kind", kind, "status", status, "error", err)
	}
	writeJSON(w, status, envelope{
		Success: false,
		Error:   apperr.MessageOf(err),
		Code:    string(kind),
	})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid JSON body")
	}
	return nil
}
