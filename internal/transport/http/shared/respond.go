// Package shared centralizes JSON response writing so every handler produces
// the same envelopes and the same domain-error translation.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "didreg/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the registrar's JSON error
// envelope. Internal faults never leak their cause to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		message = "Internal server error"
	}
	WriteJSON(w, status, map[string]string{"error": message})
}

// NotFound is the JSON 404 catch-all mounted on the router.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// MethodNotAllowed keeps non-matching verbs on known paths in the same JSON
// shape as the 404 catch-all.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}
