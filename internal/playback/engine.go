// SPDX-License-Identifier: MIT

// Package playback owns the authoritative playback state machine. Exactly one
// Engine exists per running show; every mutation goes through its operation
// set and commands are serialized against the tick loop by the engine mutex.
package playback

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/stagecast/rundownd/internal/clock"
	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/rundown"
	"github.com/stagecast/rundownd/internal/timeutil"
)

// Observer receives engine output. OnCycle fires at lifecycle trigger points;
// OnTick fires on every tick so display clients stay smooth. Callbacks are
// invoked outside the engine lock and must not call back into mutating
// engine operations synchronously.
type Observer interface {
	OnCycle(cycle Cycle, snap Snapshot)
	OnTick(snap Snapshot)
}

type firing struct {
	cycle Cycle
	snap  Snapshot
}

// Engine is the playback state machine. Create one with New at process start
// and drive it from a single tick loop; operator commands may arrive from any
// goroutine.
type Engine struct {
	mu     sync.Mutex
	src    clock.Source
	logger zerolog.Logger

	obs Observer

	idx  atomic.Pointer[rundown.Index]
	snap atomic.Pointer[Snapshot]

	state         State
	loaded        *rundown.IndexedEvent
	next          *rundown.IndexedEvent
	startedAt     int64
	pausedAt      int64
	addedTime     int64
	finishedAt    int64
	finishedFired bool
	lastUpdateSec int64
}

// New creates the engine in Stop with an empty rundown index.
func New(src clock.Source) *Engine {
	e := &Engine{
		src:           src,
		logger:        log.WithComponent("playback"),
		state:         StateStop,
		startedAt:     rundown.TimeUnset,
		pausedAt:      rundown.TimeUnset,
		finishedAt:    rundown.TimeUnset,
		lastUpdateSec: -1,
	}
	e.idx.Store(rundown.Build(nil))
	initial := e.deriveLocked(src.Now())
	e.snap.Store(&initial)
	return e
}

// SetObserver attaches the lifecycle observer. Must be called before the
// tick loop starts.
func (e *Engine) SetObserver(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.obs = obs
}

// Index returns the schedule index currently in force.
func (e *Engine) Index() *rundown.Index {
	return e.idx.Load()
}

// Snapshot returns the latest published runtime snapshot.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// SetIndex swaps in a freshly built schedule index. The swap is atomic with
// respect to ticks: a tick sees either the old or the new index, never a
// partial one. Loaded and next events are refreshed from the new index; if
// the loaded event vanished from the document, playback stops.
func (e *Engine) SetIndex(idx *rundown.Index) {
	if idx == nil {
		idx = rundown.Build(nil)
	}

	e.mu.Lock()
	e.idx.Store(idx)

	var fires []firing
	if e.loaded != nil {
		if ev, ok := idx.ByID(e.loaded.ID); ok && ev.Playable() {
			e.loaded = &ev
			e.refreshNextLocked(idx)
		} else {
			e.logger.Warn().
				Str(log.FieldEvent, "playback.loaded_entry_removed").
				Str(log.FieldEntryID, e.loaded.ID).
				Msg("loaded entry removed from rundown, stopping")
			fires = e.stopLocked()
		}
	}
	e.publishLocked(e.src.Now())
	e.mu.Unlock()

	e.fire(fires)
}

// Load arms the event with the given id. Valid targets are existing,
// non-skipped, well-formed events; anything else returns ErrInvalidEntry.
func (e *Engine) Load(id string) error {
	e.mu.Lock()
	idx := e.idx.Load()
	ev, ok := idx.ByID(id)
	if !ok || !ev.Playable() {
		e.mu.Unlock()
		return ErrInvalidEntry
	}

	old := e.state
	e.loaded = &ev
	e.refreshNextLocked(idx)
	e.state = StateArmed
	e.startedAt = rundown.TimeUnset
	e.pausedAt = rundown.TimeUnset
	e.addedTime = 0
	e.finishedAt = rundown.TimeUnset
	e.finishedFired = false

	now := e.src.Now()
	snap := e.publishLocked(now)
	e.logTransitionLocked(old, "playback.loaded", ev.ID)
	e.mu.Unlock()

	e.fire([]firing{{CycleOnLoad, snap}})
	return nil
}

// Start begins or resumes the loaded event. Valid from Armed and Pause.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.loaded == nil {
		e.mu.Unlock()
		return ErrNoEntryLoaded
	}
	if e.state != StateArmed && e.state != StatePause {
		e.mu.Unlock()
		return ErrInvalidTransition
	}

	old := e.state
	now := e.src.Now()
	if e.state == StatePause {
		// Recompute startedAt so elapsed accrued before the pause is
		// preserved exactly.
		elapsed := timeutil.WrapDuration(e.startedAt, e.pausedAt)
		e.startedAt = timeutil.Normalize(now - elapsed)
	} else {
		e.startedAt = now
	}
	e.pausedAt = rundown.TimeUnset
	e.state = StatePlay

	snap := e.publishLocked(now)
	e.logTransitionLocked(old, "playback.started", e.loaded.ID)
	e.mu.Unlock()

	e.fire([]firing{{CycleOnStart, snap}})
	return nil
}

// Pause freezes elapsed accounting. Valid from Play; a second Pause is a
// no-op, every other state is an invalid transition.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state == StatePause {
		e.mu.Unlock()
		return nil
	}
	if e.state != StatePlay {
		e.mu.Unlock()
		return ErrInvalidTransition
	}

	now := e.src.Now()
	e.pausedAt = now
	e.state = StatePause

	snap := e.publishLocked(now)
	e.logTransitionLocked(StatePlay, "playback.paused", e.loaded.ID)
	e.mu.Unlock()

	e.fire([]firing{{CycleOnPause, snap}})
	return nil
}

// Stop clears all playback state. Idempotent: stopping while stopped does
// nothing and fires nothing.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateStop {
		e.mu.Unlock()
		return nil
	}
	fires := e.stopLocked()
	e.publishLocked(e.src.Now())
	e.mu.Unlock()

	e.fire(fires)
	return nil
}

// AddTime shifts the running timer by delta milliseconds (operator +1/-1/+5/-5
// minute controls). It never touches startedAt: only the derived current and
// expectedFinish move. The timer may go negative (overtime) or recover from
// it; the finish trigger still fires at most once per load cycle.
func (e *Engine) AddTime(delta int64) error {
	e.mu.Lock()
	if e.loaded == nil {
		e.mu.Unlock()
		return ErrNoEntryLoaded
	}
	e.addedTime += delta
	now := e.src.Now()
	snap := e.publishLocked(now)
	e.logger.Info().
		Str(log.FieldEvent, "playback.time_added").
		Int64("delta_ms", delta).
		Int64("added_total_ms", e.addedTime).
		Str(log.FieldEntryID, e.loaded.ID).
		Msg("timer adjusted")
	e.mu.Unlock()

	if obs := e.observer(); obs != nil {
		obs.OnTick(snap)
	}
	return nil
}

// Roll enters autonomous schedule-driven playback. Valid from Stop only; a
// manually loaded entry must be stopped first.
func (e *Engine) Roll() error {
	e.mu.Lock()
	if e.state != StateStop || e.loaded != nil {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	e.state = StateRoll
	now := e.src.Now()
	e.publishLocked(now)
	e.logger.Info().
		Str(log.FieldEvent, "playback.roll_entered").
		Str(log.FieldClock, timeutil.FormatClock(now)).
		Msg("roll mode entered")
	e.mu.Unlock()

	// Selection happens on the next tick; force one now so roll does not
	// wait up to a tick interval to pick an event.
	e.Tick(now)
	return nil
}

func (e *Engine) observer() Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.obs
}

// stopLocked clears playback state and returns the onStop firing.
func (e *Engine) stopLocked() []firing {
	old := e.state
	e.state = StateStop
	e.loaded = nil
	e.next = nil
	e.startedAt = rundown.TimeUnset
	e.pausedAt = rundown.TimeUnset
	e.addedTime = 0
	e.finishedAt = rundown.TimeUnset
	e.finishedFired = false

	snap := e.deriveLocked(e.src.Now())
	e.logTransitionLocked(old, "playback.stopped", "")
	return []firing{{CycleOnStop, snap}}
}

func (e *Engine) refreshNextLocked(idx *rundown.Index) {
	if e.loaded == nil {
		e.next = nil
		return
	}
	if nxt, ok := idx.NextPlayable(e.loaded.ID); ok {
		e.next = &nxt
	} else {
		e.next = nil
	}
}

func (e *Engine) logTransitionLocked(old State, event, entryID string) {
	ev := e.logger.Info().
		Str(log.FieldEvent, event).
		Str(log.FieldOldState, string(old)).
		Str(log.FieldNewState, string(e.state))
	if entryID != "" {
		ev = ev.Str(log.FieldEntryID, entryID)
	}
	ev.Msg("playback transition")
}

// fire invokes observer callbacks outside the engine lock. A transition
// snapshot is also delivered to OnTick so broadcast clients see it without
// waiting for the next tick.
func (e *Engine) fire(fires []firing) {
	if len(fires) == 0 {
		return
	}
	obs := e.observer()
	if obs == nil {
		return
	}
	for _, f := range fires {
		obs.OnCycle(f.cycle, f.snap)
		obs.OnTick(f.snap)
	}
}
