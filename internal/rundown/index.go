// SPDX-License-Identifier: MIT

package rundown

import (
	"github.com/stagecast/rundownd/internal/timeutil"
)

// IndexedEvent is one event of the flattened rundown with its full schedule
// annotation. Skipped and malformed events are carried with Position 0 and are
// excluded from playback progression.
type IndexedEvent struct {
	Entry

	// EffectiveStart and EffectiveEnd are delay-adjusted clock-of-day values.
	EffectiveStart int64
	EffectiveEnd   int64

	// StartTotal and EndTotal are milliseconds from the rundown day's
	// midnight, day offset included. EndTotal - StartTotal == Duration.
	StartTotal int64
	EndTotal   int64

	// DayOffset is the day the event starts on, 0 = first day.
	DayOffset int

	// DaySpan is the number of midnight crossings the event's end falls
	// across, the "D+n" badge shown to operators.
	DaySpan int

	// Gap is idle time before this event relative to the previous event's
	// end. Negative when the operator authored an overlap; callers may clamp
	// for display but internal timing keeps the sign.
	Gap int64

	// Position is the 1-based index among non-skipped events, 0 otherwise.
	Position int
}

// Index is the flattened, schedule-annotated view of a rundown document.
// Building it is a pure transform; the daemon swaps a freshly built index
// into the engine atomically whenever the document changes.
type Index struct {
	Events []IndexedEvent
	Total  int // count of non-skipped playable events

	byID map[string]int
}

func floorDiv(a, d int64) int64 {
	q := a / d
	if a%d != 0 && (a < 0) != (d < 0) {
		q--
	}
	return q
}

// Build flattens entries into events only, applying delay propagation, day
// accounting and gap annotation in a single pass.
func Build(entries []Entry) *Index {
	sched := PropagateDelays(entries)

	idx := &Index{byID: make(map[string]int)}

	// Day accounting splits into two signals: authoredDay counts midnights
	// the operator wrote into the document (clock going backwards between
	// successive events), and the delay push is however many whole days the
	// running delay carries an event past its authored day.
	authoredDay := 0
	prevAuthoredClock := int64(TimeUnset)
	prevEndTotal := int64(TimeUnset)
	position := 0

	for _, s := range sched {
		switch s.Kind {
		case KindBlock:
			// Blocks reset day-span accounting alongside the delay.
			authoredDay = 0
			prevAuthoredClock = TimeUnset
			prevEndTotal = TimeUnset
			continue
		case KindDelay:
			continue
		}

		ev := IndexedEvent{
			Entry:          s.Entry,
			EffectiveStart: TimeUnset,
			EffectiveEnd:   TimeUnset,
			StartTotal:     TimeUnset,
			EndTotal:       TimeUnset,
		}

		if s.Entry.IsMalformed() {
			idx.byID[ev.ID] = len(idx.Events)
			idx.Events = append(idx.Events, ev)
			continue
		}

		// The walk normalizes event times, so the authored clock is the
		// entry's TimeStart and the delay contribution is whatever the
		// effective start carries beyond [0, DayMs).
		authoredClock := s.Entry.TimeStart
		if prevAuthoredClock != TimeUnset && authoredClock < prevAuthoredClock {
			authoredDay++
		}
		prevAuthoredClock = authoredClock

		// A delay can push an event any number of days forward; a negative
		// one cannot pull it before the rundown day.
		dayOffset := authoredDay + int(floorDiv(s.EffectiveStart, timeutil.DayMs))
		if dayOffset < 0 {
			dayOffset = 0
		}

		startClock := timeutil.Normalize(s.EffectiveStart)
		startTotal := int64(dayOffset)*timeutil.DayMs + startClock
		endTotal := startTotal + s.Duration

		ev.EffectiveStart = startClock
		ev.EffectiveEnd = timeutil.Normalize(s.EffectiveEnd)
		ev.StartTotal = startTotal
		ev.EndTotal = endTotal
		ev.DayOffset = dayOffset
		ev.DaySpan = timeutil.DaySpan(endTotal)

		if prevEndTotal != TimeUnset {
			ev.Gap = startTotal - prevEndTotal
		}

		if !ev.Skip {
			position++
			ev.Position = position
		}

		prevEndTotal = endTotal

		idx.byID[ev.ID] = len(idx.Events)
		idx.Events = append(idx.Events, ev)
	}

	idx.Total = position
	return idx
}

// ByID looks up an indexed event by entry id.
func (x *Index) ByID(id string) (IndexedEvent, bool) {
	if x == nil {
		return IndexedEvent{}, false
	}
	i, ok := x.byID[id]
	if !ok {
		return IndexedEvent{}, false
	}
	return x.Events[i], true
}

// FirstPlayable returns the first non-skipped, well-formed event.
func (x *Index) FirstPlayable() (IndexedEvent, bool) {
	if x == nil {
		return IndexedEvent{}, false
	}
	for _, ev := range x.Events {
		if ev.Playable() {
			return ev, true
		}
	}
	return IndexedEvent{}, false
}

// NextPlayable returns the first non-skipped, well-formed event after the
// given id. Wrapping to the head of the rundown is the caller's decision.
func (x *Index) NextPlayable(afterID string) (IndexedEvent, bool) {
	if x == nil {
		return IndexedEvent{}, false
	}
	i, ok := x.byID[afterID]
	if !ok {
		return IndexedEvent{}, false
	}
	for _, ev := range x.Events[i+1:] {
		if ev.Playable() {
			return ev, true
		}
	}
	return IndexedEvent{}, false
}

// ActiveAt returns the playable event whose effective interval contains the
// given clock-of-day instant, honouring midnight wraparound.
func (x *Index) ActiveAt(now int64) (IndexedEvent, bool) {
	if x == nil {
		return IndexedEvent{}, false
	}
	for _, ev := range x.Events {
		if !ev.Playable() {
			continue
		}
		if timeutil.Contains(ev.EffectiveStart, ev.EffectiveEnd, now) {
			return ev, true
		}
	}
	return IndexedEvent{}, false
}

// UpcomingAt returns the playable event whose effective start is soonest
// after the given instant on the day clock, with the countdown until it.
// With no event containing or following now today, the search wraps to the
// next day's earliest start.
func (x *Index) UpcomingAt(now int64) (IndexedEvent, int64, bool) {
	if x == nil {
		return IndexedEvent{}, 0, false
	}
	var (
		best      IndexedEvent
		bestUntil int64
		found     bool
	)
	for _, ev := range x.Events {
		if !ev.Playable() {
			continue
		}
		until := timeutil.Until(now, ev.EffectiveStart)
		if until == 0 {
			// Starts exactly now; nothing sooner exists.
			return ev, 0, true
		}
		if !found || until < bestUntil {
			best = ev
			bestUntil = until
			found = true
		}
	}
	return best, bestUntil, found
}
