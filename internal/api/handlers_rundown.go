// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/rundown"
)

// rundownDocument is the wire shape of the document boundary.
type rundownDocument struct {
	Entries []rundown.Entry `json:"entries"`
}

// handleGetRundown returns the persisted document.
func (s *Server) handleGetRundown(w http.ResponseWriter, r *http.Request) {
	entries, err := s.opts.Documents.Load(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "rundown.load_failed").
			Msg("failed to load rundown document")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rundownDocument{Entries: entries})
}

// handlePutRundown replaces the whole document. The store assigns ids to new
// entries and emits a change notification that makes the daemon rebuild the
// schedule index.
func (s *Server) handlePutRundown(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var doc rundownDocument
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stored, err := s.opts.Documents.Replace(r.Context(), doc.Entries)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "rundown.replace_rejected").
			Msg("rundown replace rejected")
		writeCommandError(w, err)
		return
	}

	logger.Info().
		Str(log.FieldEvent, "rundown.replaced").
		Int("entries", len(stored)).
		Msg("rundown document replaced")
	writeJSON(w, http.StatusOK, rundownDocument{Entries: stored})
}
