// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/metrics"
)

// command builds a handler for a parameterless playback command. On success
// the fresh snapshot is returned so control surfaces can render immediately
// without waiting for the next broadcast frame.
func (s *Server) command(op string, fn func(Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextWithCommandID(r.Context(), uuid.NewString())
		logger := log.WithComponentFromContext(ctx, "api")

		err := fn(s.opts.Engine)
		metrics.IncCommand(op, err)
		if err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "command.rejected").
				Str("op", op).
				Msg("playback command rejected")
			writeCommandError(w, err)
			return
		}

		logger.Info().
			Str(log.FieldEvent, "command.accepted").
			Str("op", op).
			Msg("playback command accepted")
		writeJSON(w, http.StatusOK, s.opts.Engine.Snapshot())
	}
}

// handleLoad arms a specific entry by id.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := log.ContextWithCommandID(r.Context(), uuid.NewString())
	logger := log.WithComponentFromContext(ctx, "api")

	err := s.opts.Engine.Load(id)
	metrics.IncCommand("load", err)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "command.rejected").
			Str("op", "load").
			Str(log.FieldEntryID, id).
			Msg("playback command rejected")
		writeCommandError(w, err)
		return
	}

	logger.Info().
		Str(log.FieldEvent, "command.accepted").
		Str("op", "load").
		Str(log.FieldEntryID, id).
		Msg("playback command accepted")
	writeJSON(w, http.StatusOK, s.opts.Engine.Snapshot())
}

// handleAddTime applies a signed millisecond adjustment to the running timer.
func (s *Server) handleAddTime(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be a signed integer of milliseconds",
		})
		return
	}

	ctx := log.ContextWithCommandID(r.Context(), uuid.NewString())
	logger := log.WithComponentFromContext(ctx, "api")

	err = s.opts.Engine.AddTime(amount)
	metrics.IncCommand("addtime", err)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "command.rejected").
			Str("op", "addtime").
			Int64("amount", amount).
			Msg("playback command rejected")
		writeCommandError(w, err)
		return
	}

	logger.Info().
		Str(log.FieldEvent, "command.accepted").
		Str("op", "addtime").
		Int64("amount", amount).
		Msg("playback command accepted")
	writeJSON(w, http.StatusOK, s.opts.Engine.Snapshot())
}

// handleSnapshot serves the latest broadcast frame, the pull path for
// reconnecting view clients.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Hub.Latest())
}
