// SPDX-License-Identifier: MIT

// Package api provides the HTTP control surface of the daemon: playback
// commands, the rundown document boundary, the snapshot pull path, and the
// websocket stream, plus probes and metrics.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stagecast/rundownd/internal/api/middleware"
	"github.com/stagecast/rundownd/internal/broadcast"
	"github.com/stagecast/rundownd/internal/health"
	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

// Engine is the playback command surface the API drives. Implemented by
// playback.Engine.
type Engine interface {
	Load(id string) error
	Start() error
	Pause() error
	Stop() error
	Roll() error
	AddTime(delta int64) error
	Snapshot() playback.Snapshot
}

// Hub streams frames to view clients and serves the latest frame for the
// reconnect pull path. Implemented by broadcast.Hub.
type Hub interface {
	http.Handler
	Latest() broadcast.Frame
}

// DocumentStore is the rundown persistence boundary. Implemented by
// store.Store.
type DocumentStore interface {
	Load(ctx context.Context) ([]rundown.Entry, error)
	Replace(ctx context.Context, entries []rundown.Entry) ([]rundown.Entry, error)
}

// Options wires the server's dependencies.
type Options struct {
	Engine    Engine
	Hub       Hub
	Documents DocumentStore
	Health    *health.Manager

	RateRPS   int
	RateBurst int

	// TracingService enables otelhttp instrumentation when non-empty.
	TracingService string
}

// Server is the HTTP API server.
type Server struct {
	opts   Options
	logger zerolog.Logger
}

// New creates the API server.
func New(opts Options) *Server {
	return &Server{
		opts:   opts,
		logger: log.WithComponent("api"),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if s.opts.TracingService != "" {
		r.Use(middleware.OTelHTTP(s.opts.TracingService))
	}
	r.Use(middleware.Logging)

	r.Get("/healthz", s.opts.Health.ServeHealth)
	r.Get("/readyz", s.opts.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.opts.Hub.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)

		r.Route("/playback", func(r chi.Router) {
			r.Use(middleware.CommandRateLimit(s.opts.RateRPS, s.opts.RateBurst))
			r.Post("/load/{id}", s.handleLoad)
			r.Post("/start", s.command("start", Engine.Start))
			r.Post("/pause", s.command("pause", Engine.Pause))
			r.Post("/stop", s.command("stop", Engine.Stop))
			r.Post("/roll", s.command("roll", Engine.Roll))
			r.Post("/addtime", s.handleAddTime)
		})

		r.Get("/rundown", s.handleGetRundown)
		r.With(middleware.WriteRateLimit()).Put("/rundown", s.handlePutRundown)
	})

	return r
}
