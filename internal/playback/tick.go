// SPDX-License-Identifier: MIT

package playback

import (
	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/rundown"
	"github.com/stagecast/rundownd/internal/timeutil"
)

// Tick advances derived state against the given clock-of-day instant. It is
// driven at least once per second by the tick loop; more frequent ticks are
// harmless. Broadcast observers see every tick, automation onUpdate fires at
// most once per wall-clock second, and the finish trigger fires exactly once
// per load cycle no matter the tick frequency.
func (e *Engine) Tick(now int64) {
	e.mu.Lock()

	var fires []firing
	if e.state == StateRoll {
		fires = e.rollTickLocked(now)
	}

	snap := e.publishLocked(now)

	if e.state == StatePlay && !e.finishedFired && snap.Current < 0 {
		e.finishedFired = true
		e.finishedAt = now
		snap = e.publishLocked(now)
		fires = append(fires, firing{CycleOnFinish, snap})
	}

	if e.state != StateStop {
		if sec := now / 1000; sec != e.lastUpdateSec {
			e.lastUpdateSec = sec
			fires = append(fires, firing{CycleOnUpdate, snap})
		}
	}

	obs := e.obs
	e.mu.Unlock()

	if obs == nil {
		return
	}
	for _, f := range fires {
		obs.OnCycle(f.cycle, f.snap)
	}
	obs.OnTick(snap)
}

// rollTickLocked evaluates the effective schedule against now and selects the
// current event autonomously. Returns lifecycle firings for the dispatcher.
func (e *Engine) rollTickLocked(now int64) []firing {
	idx := e.idx.Load()
	active, ok := idx.ActiveAt(now)

	if ok && e.loaded != nil && e.loaded.ID == active.ID {
		return nil
	}

	var fires []firing

	// The previously rolled event ran out of its slot: surface its finish
	// before selecting the next one.
	if e.loaded != nil && !e.finishedFired {
		e.finishedFired = true
		e.finishedAt = now
		fires = append(fires, firing{CycleOnFinish, e.deriveLocked(now)})
	}

	if !ok {
		// Waiting sub-state: nothing active, count down to the next start.
		if e.loaded != nil {
			e.logger.Info().
				Str(log.FieldEvent, "playback.roll_waiting").
				Str(log.FieldClock, timeutil.FormatClock(now)).
				Msg("no active event, waiting for next start")
		}
		e.loaded = nil
		e.next = nil
		e.startedAt = rundown.TimeUnset
		e.addedTime = 0
		return fires
	}

	e.loaded = &active
	if nxt, found := idx.NextPlayable(active.ID); found {
		e.next = &nxt
	} else if first, found := idx.FirstPlayable(); found && first.ID != active.ID {
		// Rolling shows wrap to the next day's first event.
		e.next = &first
	} else {
		e.next = nil
	}

	// Roll timers run against the schedule, not the selection instant.
	e.startedAt = active.EffectiveStart
	e.addedTime = 0
	e.finishedAt = rundown.TimeUnset
	e.finishedFired = false

	snap := e.deriveLocked(now)
	e.logger.Info().
		Str(log.FieldEvent, "playback.roll_selected").
		Str(log.FieldEntryID, active.ID).
		Str(log.FieldClock, timeutil.FormatClock(now)).
		Msg("roll selected event")
	fires = append(fires, firing{CycleOnLoad, snap}, firing{CycleOnStart, snap})
	return fires
}

// publishLocked derives the snapshot for now and publishes it atomically.
func (e *Engine) publishLocked(now int64) Snapshot {
	snap := e.deriveLocked(now)
	e.snap.Store(&snap)
	return snap
}

// deriveLocked computes the per-tick view. Pure with respect to now: it
// mutates nothing.
func (e *Engine) deriveLocked(now int64) Snapshot {
	idx := e.idx.Load()

	snap := Snapshot{
		Playback:       e.state,
		Clock:          now,
		AddedTime:      e.addedTime,
		StartedAt:      e.startedAt,
		FinishedAt:     e.finishedAt,
		ExpectedFinish: rundown.TimeUnset,
		SecondaryTimer: rundown.TimeUnset,
		NumEvents:      idx.Total,
	}

	if e.loaded != nil {
		snap.Loaded = true
		snap.SelectedEventID = e.loaded.ID
		snap.SelectedEventIndex = e.loaded.Position
		snap.TitleNow = e.loaded.Title
		snap.CueNow = e.loaded.Cue
		snap.EndAction = e.loaded.EndAction

		duration := e.loaded.Duration
		switch e.state {
		case StatePlay, StateRoll:
			if e.startedAt != rundown.TimeUnset {
				elapsed := timeutil.WrapDuration(e.startedAt, now)
				snap.Elapsed = elapsed
				snap.Current = duration + e.addedTime - elapsed
				snap.ExpectedFinish = timeutil.Normalize(e.startedAt + duration + e.addedTime)
			}
		case StatePause:
			elapsed := timeutil.WrapDuration(e.startedAt, e.pausedAt)
			snap.Elapsed = elapsed
			snap.Current = duration + e.addedTime - elapsed
			// A paused timer finishes later the longer it stays paused.
			snap.ExpectedFinish = timeutil.Normalize(now - elapsed + duration + e.addedTime)
		case StateArmed:
			snap.Current = duration + e.addedTime
		}

		// Offset > 0: expected finish lies after the scheduled effective
		// end, playback is behind schedule.
		if snap.ExpectedFinish != rundown.TimeUnset {
			snap.Offset = timeutil.SignedDiff(snap.ExpectedFinish, e.loaded.EffectiveEnd)
		}
	}

	if e.next != nil {
		snap.NextEventID = e.next.ID
		snap.TitleNext = e.next.Title
	}

	if e.state == StateRoll && e.loaded == nil {
		if up, until, ok := idx.UpcomingAt(now); ok {
			snap.SecondaryTimer = until
			snap.NextEventID = up.ID
			snap.TitleNext = up.Title
		}
	}

	return snap
}
