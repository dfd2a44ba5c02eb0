// Package shared centralizes JSON response writing so every handler returns
// the same envelope shapes and domain errors map to HTTP statuses in exactly
// one place.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "outing/pkg/domain-errors"
)

// WriteJSON writes v with the given status. Encoding failures are swallowed;
// the header is already out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the {"success":true} envelope the sync API promises.
func WriteSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// WriteError translates a domain error into its HTTP response. Uncoded errors
// come out as a generic 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":             string(code),
		"error_description": dErrors.MessageOf(err),
	})
}
