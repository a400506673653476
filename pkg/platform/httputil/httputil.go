// Package httputil centralizes JSON response and error envelope writing so
// every handler renders domain errors the same way.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "k9hope/pkg/domain-errors"
)

// WriteJSON renders v as JSON with the given status. Encoding failures are
// ignored; the status line has already been committed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into the JSON error envelope.
// Internal errors omit the description so store details never leak to
// clients; every other code includes the message for a precise user-facing
// rendering.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeInvariantViolation {
		body["error_description"] = errMessage(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
