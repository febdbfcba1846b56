// SPDX-License-Identifier: MIT

// Package rundown models the ordered show rundown (events, delays, blocks)
// and computes the effective schedule the playback engine runs against.
package rundown

import (
	"encoding/json"
	"errors"

	"github.com/stagecast/rundownd/internal/timeutil"
)

// Kind discriminates the rundown entry union.
type Kind string

const (
	KindEvent Kind = "event"
	KindDelay Kind = "delay"
	KindBlock Kind = "block"
)

// TimeStrategy declares which two of start/end/duration are authoritative.
type TimeStrategy string

const (
	// StrategyLockEnd keeps start and end authoritative; duration is derived.
	StrategyLockEnd TimeStrategy = "lock-end"
	// StrategyLockDuration keeps start and duration authoritative; end is derived.
	StrategyLockDuration TimeStrategy = "lock-duration"
)

// TimerType selects how viewers render the timer for an event.
type TimerType string

const (
	TimerCountDown TimerType = "count-down"
	TimerCountUp   TimerType = "count-up"
	TimerClock     TimerType = "clock"
	TimerNone      TimerType = "none"
)

// EndAction declares what should happen when an event's timer reaches zero.
// Execution is owned by the auto-advance policy, not the engine.
type EndAction string

const (
	EndActionNone     EndAction = "none"
	EndActionStop     EndAction = "stop"
	EndActionLoadNext EndAction = "load-next"
)

// TimeUnset marks a missing time field on a corrupted event. Corrupted events
// are excluded from schedule computation but retained in the index so totals
// never silently disappear from the operator's view.
const TimeUnset int64 = -1

// ErrDuplicateID reports a rundown document with a repeated entry id.
var ErrDuplicateID = errors.New("duplicate entry id")

// Entry is one rundown item. Kind selects which fields are meaningful:
// events carry the full set, delays only Duration (signed), blocks nothing.
type Entry struct {
	ID           string            `json:"id"`
	Kind         Kind              `json:"kind"`
	Cue          string            `json:"cue,omitempty"`
	Title        string            `json:"title,omitempty"`
	TimeStart    int64             `json:"timeStart"`
	TimeEnd      int64             `json:"timeEnd"`
	Duration     int64             `json:"duration,omitempty"`
	TimeStrategy TimeStrategy      `json:"timeStrategy,omitempty"`
	IsPublic     bool              `json:"isPublic,omitempty"`
	Skip         bool              `json:"skip,omitempty"`
	Colour       string            `json:"colour,omitempty"`
	TimerType    TimerType         `json:"timerType,omitempty"`
	EndAction    EndAction         `json:"endAction,omitempty"`
	TimeWarning  int64             `json:"timeWarning,omitempty"`
	TimeDanger   int64             `json:"timeDanger,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// IsMalformed reports whether an event entry is missing a required time
// field. What is required follows the time strategy: lock-duration derives
// the end, so only the start must be present; lock-end needs both.
func (e Entry) IsMalformed() bool {
	if e.Kind != KindEvent {
		return false
	}
	if e.TimeStart == TimeUnset {
		return true
	}
	if e.TimeStrategy == StrategyLockDuration {
		return false
	}
	return e.TimeEnd == TimeUnset
}

// MarshalJSON omits unset time fields instead of writing the sentinel.
func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	aux := struct {
		plain
		TimeStart *int64 `json:"timeStart,omitempty"`
		TimeEnd   *int64 `json:"timeEnd,omitempty"`
	}{plain: plain(e)}
	if e.TimeStart != TimeUnset {
		v := e.TimeStart
		aux.TimeStart = &v
	}
	if e.TimeEnd != TimeUnset {
		v := e.TimeEnd
		aux.TimeEnd = &v
	}
	return json.Marshal(aux)
}

// UnmarshalJSON maps absent time fields to TimeUnset so a document missing
// them yields a malformed entry rather than a valid midnight event.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	p := plain{TimeStart: TimeUnset, TimeEnd: TimeUnset}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Playable reports whether the entry participates in playback progression.
func (e Entry) Playable() bool {
	return e.Kind == KindEvent && !e.Skip && !e.IsMalformed()
}

// Normalize derives the non-authoritative time field per the entry's
// TimeStrategy and wraps clock fields into the day. Non-events and malformed
// events pass through untouched.
func (e Entry) Normalize() Entry {
	if e.Kind != KindEvent || e.IsMalformed() {
		return e
	}
	e.TimeStart = timeutil.Normalize(e.TimeStart)
	switch e.TimeStrategy {
	case StrategyLockDuration:
		if e.Duration < 0 {
			e.Duration = 0
		}
		e.TimeEnd = timeutil.Normalize(e.TimeStart + e.Duration)
	default: // lock-end is the default strategy
		e.TimeEnd = timeutil.Normalize(e.TimeEnd)
		e.Duration = timeutil.WrapDuration(e.TimeStart, e.TimeEnd)
	}
	return e
}

// ValidateIDs checks id uniqueness across the document. Empty ids are allowed
// here; the store assigns them before persisting.
func ValidateIDs(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			return ErrDuplicateID
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
