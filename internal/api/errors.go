// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a generic error response
func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeCommandError maps playback sentinel errors onto HTTP status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playback.ErrInvalidEntry):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, playback.ErrNoEntryLoaded),
		errors.Is(err, playback.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, rundown.ErrDuplicateID):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
