// SPDX-License-Identifier: MIT

// Package broadcast pushes versioned runtime snapshots to read-only view
// clients (stage timers, clocks, lower thirds) over websockets.
package broadcast

import (
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

// TimerView carries the derived timer fields. Nullable fields are pointers
// so clients can distinguish "not set" from zero.
type TimerView struct {
	Clock          int64  `json:"clock"`
	Current        int64  `json:"current"`
	Elapsed        int64  `json:"elapsed"`
	ExpectedFinish *int64 `json:"expectedFinish"`
	AddedTime      int64  `json:"addedTime"`
	StartedAt      *int64 `json:"startedAt"`
	FinishedAt     *int64 `json:"finishedAt"`
	SecondaryTimer *int64 `json:"secondaryTimer"`
}

// LoadedView identifies the selected and upcoming events.
type LoadedView struct {
	SelectedEventID    string `json:"selectedEventId"`
	NextEventID        string `json:"nextEventId"`
	NumEvents          int    `json:"numEvents"`
	SelectedEventIndex int    `json:"selectedEventIndex"`
}

// TitlesView is what lower-third renderers consume.
type TitlesView struct {
	Now  string `json:"now"`
	Next string `json:"next"`
}

// Frame is one versioned snapshot on the wire. Revisions are strictly
// increasing per process lifetime; a client that observes a revision jump
// greater than one may have missed updates and can pull the latest frame to
// resync. Offset sign: positive means behind schedule.
type Frame struct {
	Revision uint64         `json:"revision"`
	Playback playback.State `json:"playback"`
	Timer    TimerView      `json:"timer"`
	Loaded   LoadedView     `json:"loaded"`
	Titles   TitlesView     `json:"titles"`
	Offset   int64          `json:"offset"`
	OnAir    bool           `json:"onAir"`
}

func msPtr(v int64) *int64 {
	if v == rundown.TimeUnset {
		return nil
	}
	return &v
}

func msVal(p *int64) int64 {
	if p == nil {
		return rundown.TimeUnset
	}
	return *p
}

// NewFrame converts an engine snapshot into the wire schema.
func NewFrame(revision uint64, snap playback.Snapshot) Frame {
	return Frame{
		Revision: revision,
		Playback: snap.Playback,
		Timer: TimerView{
			Clock:          snap.Clock,
			Current:        snap.Current,
			Elapsed:        snap.Elapsed,
			ExpectedFinish: msPtr(snap.ExpectedFinish),
			AddedTime:      snap.AddedTime,
			StartedAt:      msPtr(snap.StartedAt),
			FinishedAt:     msPtr(snap.FinishedAt),
			SecondaryTimer: msPtr(snap.SecondaryTimer),
		},
		Loaded: LoadedView{
			SelectedEventID:    snap.SelectedEventID,
			NextEventID:        snap.NextEventID,
			NumEvents:          snap.NumEvents,
			SelectedEventIndex: snap.SelectedEventIndex,
		},
		Titles: TitlesView{Now: snap.TitleNow, Next: snap.TitleNext},
		Offset: snap.Offset,
		OnAir:  snap.OnAir(),
	}
}

// ToSnapshot reconstructs an engine-equivalent snapshot from a frame, used by
// reconnecting clients to resync their local derivation.
func (f Frame) ToSnapshot() playback.Snapshot {
	return playback.Snapshot{
		Playback:           f.Playback,
		Clock:              f.Timer.Clock,
		Current:            f.Timer.Current,
		Elapsed:            f.Timer.Elapsed,
		ExpectedFinish:     msVal(f.Timer.ExpectedFinish),
		AddedTime:          f.Timer.AddedTime,
		StartedAt:          msVal(f.Timer.StartedAt),
		FinishedAt:         msVal(f.Timer.FinishedAt),
		SecondaryTimer:     msVal(f.Timer.SecondaryTimer),
		Offset:             f.Offset,
		Loaded:             f.Loaded.SelectedEventID != "",
		SelectedEventID:    f.Loaded.SelectedEventID,
		NextEventID:        f.Loaded.NextEventID,
		SelectedEventIndex: f.Loaded.SelectedEventIndex,
		NumEvents:          f.Loaded.NumEvents,
		TitleNow:           f.Titles.Now,
		TitleNext:          f.Titles.Next,
	}
}
