// SPDX-License-Identifier: MIT

// Package lifecycle connects the playback engine to its two sinks: the
// broadcast hub for view clients and the automation bus for OSC/HTTP
// triggers. It also owns the auto-advance policy that runs when a finished
// event asks for it.
package lifecycle

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/metrics"
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

// Broadcaster publishes versioned snapshots to view clients.
type Broadcaster interface {
	Publish(revision uint64, snap playback.Snapshot)
}

// Trigger fires automation targets for a lifecycle point.
type Trigger interface {
	Fire(cycle playback.Cycle, snap playback.Snapshot)
}

// Advancer is the subset of engine operations auto-advance needs.
type Advancer interface {
	Load(id string) error
	Start() error
	Stop() error
}

// Dispatcher implements playback.Observer. Every tick bumps the revision and
// refreshes the broadcast; lifecycle cycles additionally fire the automation
// bus. The engine guarantees each OnCycle is followed by an OnTick carrying
// the same snapshot, so transitions reach view clients without an extra
// publish here.
type Dispatcher struct {
	rev    atomic.Uint64
	hub    Broadcaster
	bus    Trigger
	eng    Advancer
	logger zerolog.Logger
}

// New wires a dispatcher. eng may be nil to disable auto-advance.
func New(hub Broadcaster, bus Trigger, eng Advancer) *Dispatcher {
	return &Dispatcher{
		hub:    hub,
		bus:    bus,
		eng:    eng,
		logger: log.WithComponent("lifecycle"),
	}
}

// Revision returns the last published revision.
func (d *Dispatcher) Revision() uint64 {
	return d.rev.Load()
}

// OnTick publishes the snapshot under a fresh, strictly increasing revision.
func (d *Dispatcher) OnTick(snap playback.Snapshot) {
	rev := d.rev.Add(1)
	metrics.TicksTotal.Inc()
	metrics.SetBroadcastRevision(rev)
	metrics.SetPlaybackState(string(snap.Playback))
	if d.hub != nil {
		d.hub.Publish(rev, snap)
	}
}

// OnCycle fires the automation bus and, on a finish, the auto-advance policy.
// The bus isolates per-target failures internally; nothing here can interrupt
// the tick loop.
func (d *Dispatcher) OnCycle(cycle playback.Cycle, snap playback.Snapshot) {
	if d.bus != nil {
		d.bus.Fire(cycle, snap)
	}
	// Roll selects the next event from the schedule on its own; end actions
	// only drive manual playback. Acting on a roll finish here would load the
	// next event manually and silently drop the engine out of roll.
	if cycle == playback.CycleOnFinish && d.eng != nil && snap.Playback != playback.StateRoll {
		// Engine callbacks run outside the engine lock, but advance on a
		// separate goroutine so a finish observed mid-tick never re-enters
		// the engine synchronously.
		go d.advance(snap)
	}
}

// advance executes the finished event's end action.
func (d *Dispatcher) advance(snap playback.Snapshot) {
	switch snap.EndAction {
	case rundown.EndActionLoadNext:
		if snap.NextEventID == "" {
			d.logger.Info().
				Str(log.FieldEvent, "lifecycle.advance_no_next").
				Msg("end of rundown, nothing to advance to")
			return
		}
		if err := d.eng.Load(snap.NextEventID); err != nil {
			d.logger.Warn().Err(err).
				Str(log.FieldEvent, "lifecycle.advance_load_failed").
				Str(log.FieldEntryID, snap.NextEventID).
				Msg("auto-advance load rejected")
			return
		}
		if err := d.eng.Start(); err != nil {
			d.logger.Warn().Err(err).
				Str(log.FieldEvent, "lifecycle.advance_start_failed").
				Msg("auto-advance start rejected")
		}
	case rundown.EndActionStop:
		if err := d.eng.Stop(); err != nil {
			d.logger.Warn().Err(err).
				Str(log.FieldEvent, "lifecycle.advance_stop_failed").
				Msg("auto-advance stop rejected")
		}
	default:
		// EndActionNone: the timer keeps counting into overtime.
	}
}
