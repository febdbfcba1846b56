// SPDX-License-Identifier: MIT

// Package daemon owns the long-lived runtime lifecycle: the engine tick loop,
// the config watcher and reload wiring, the rundown change watcher, and the
// HTTP server. main wires the pieces; App supervises them.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stagecast/rundownd/internal/automation"
	"github.com/stagecast/rundownd/internal/clock"
	"github.com/stagecast/rundownd/internal/config"
	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/metrics"
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
	"github.com/stagecast/rundownd/internal/store"
)

// ErrMissingEngine is returned when Run is called without a playback engine.
var ErrMissingEngine = errors.New("daemon: playback engine is required")

const shutdownTimeout = 10 * time.Second

// Options collects the subsystems App supervises. Engine, Clock and Server
// are required; the rest degrade to no-ops when nil.
type Options struct {
	Engine    *playback.Engine
	Clock     clock.Source
	Server    *http.Server
	Store     *store.Store
	Bus       *automation.Bus
	CfgHolder *config.Holder

	TickInterval time.Duration
}

// App runs the daemon's background subsystems until the context is cancelled
// or one of them fails.
type App struct {
	logger zerolog.Logger
	opts   Options

	// intervalCh carries tick interval changes from config reloads into the
	// tick loop.
	intervalCh chan time.Duration
	lastTick   atomic.Int64 // unix nanos of the most recent engine tick
}

// NewApp creates the daemon orchestrator.
func NewApp(opts Options) *App {
	return &App{
		logger:     log.WithComponent("daemon"),
		opts:       opts,
		intervalCh: make(chan time.Duration, 1),
	}
}

// LastTick reports when the engine last ticked. Zero until the first tick.
// Plugged into the health tick checker.
func (a *App) LastTick() time.Time {
	ns := a.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.opts.Engine == nil || a.opts.Clock == nil {
		return ErrMissingEngine
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if the watcher
	// cannot be started.
	if a.opts.CfgHolder != nil {
		if err := a.opts.CfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).
				Str(log.FieldEvent, "config.watcher_start_failed").
				Msg("failed to start config watcher")
		}

		reloadCh := make(chan config.Config, 1)
		a.opts.CfgHolder.RegisterListener(reloadCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-reloadCh:
					a.applyConfig(cfg)
				}
			}
		})

		// SIGHUP trigger for manual reload.
		g.Go(func() error {
			hupCh := make(chan os.Signal, 1)
			signal.Notify(hupCh, syscall.SIGHUP)
			defer signal.Stop(hupCh)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupCh:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Msg("received SIGHUP, reloading config")
					if err := a.opts.CfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Rundown change watcher: a PUT through the API lands in the store, the
	// store signals, and the engine swaps to a freshly built index.
	if a.opts.Store != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-a.opts.Store.Changes():
					a.reloadRundown(ctx)
				}
			}
		})
	}

	g.Go(func() error {
		a.tickLoop(ctx)
		return nil
	})

	if a.opts.Server != nil {
		g.Go(func() error {
			return a.serveHTTP(ctx)
		})
	}

	return g.Wait()
}

// tickLoop drives the playback engine at the configured cadence. Interval
// changes from config reloads take effect without a restart.
func (a *App) tickLoop(ctx context.Context) {
	interval := a.opts.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	expected := time.Now().Add(interval)
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-a.intervalCh:
			if next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				expected = time.Now().Add(interval)
				a.logger.Info().
					Str(log.FieldEvent, "tick.interval_changed").
					Dur("interval", interval).
					Msg("tick interval updated")
			}
		case now := <-ticker.C:
			drift := now.Sub(expected)
			if drift < 0 {
				drift = -drift
			}
			metrics.TickDrift.Observe(drift.Seconds())

			a.opts.Engine.Tick(a.opts.Clock.Now())
			a.lastTick.Store(now.UnixNano())
			expected = now.Add(interval)
		}
	}
}

// serveHTTP runs the API server and shuts it down gracefully on ctx cancel.
func (a *App) serveHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.opts.Server.ListenAndServe()
	}()

	a.logger.Info().
		Str(log.FieldEvent, "http.listening").
		Str("addr", a.opts.Server.Addr).
		Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.opts.Server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).
				Str(log.FieldEvent, "http.shutdown_failed").
				Msg("graceful shutdown failed")
			return err
		}
		a.logger.Info().
			Str(log.FieldEvent, "http.stopped").
			Msg("http server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// applyConfig pushes reloadable settings into running subsystems. The listen
// address and store path still require a restart.
func (a *App) applyConfig(cfg config.Config) {
	if a.opts.Bus != nil {
		if err := a.opts.Bus.Update(cfg.Automation); err != nil {
			a.logger.Warn().Err(err).
				Str(log.FieldEvent, "automation.update_failed").
				Msg("keeping previous automation subscriptions")
		} else {
			a.logger.Info().
				Str(log.FieldEvent, "automation.updated").
				Int("subscriptions", len(cfg.Automation)).
				Msg("automation subscriptions applied")
		}
	}

	select {
	case a.intervalCh <- cfg.TickInterval.Std():
	default:
	}
}

// reloadRundown rebuilds the playback index from the stored document.
func (a *App) reloadRundown(ctx context.Context) {
	entries, err := a.opts.Store.Load(ctx)
	if err != nil {
		a.logger.Warn().Err(err).
			Str(log.FieldEvent, "rundown.reload_failed").
			Msg("keeping previous rundown index")
		return
	}
	a.opts.Engine.SetIndex(rundown.Build(entries))
	a.logger.Info().
		Str(log.FieldEvent, "rundown.reloaded").
		Int("entries", len(entries)).
		Msg("rundown index rebuilt")
}
