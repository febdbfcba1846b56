// SPDX-License-Identifier: MIT

package playback

import "github.com/stagecast/rundownd/internal/rundown"

// State is the playback state machine position.
type State string

const (
	StateStop  State = "stop"
	StateArmed State = "armed"
	StatePlay  State = "play"
	StatePause State = "pause"
	StateRoll  State = "roll"
)

// Snapshot is the immutable runtime view derived on every tick. Readers get
// a value copy; the engine publishes the latest one through an atomic
// pointer so broadcast reads never observe torn state.
//
// Time fields are clock-of-day milliseconds; TimeUnset (-1) marks "not set".
// Offset sign convention: offset > 0 means playback is behind schedule,
// offset <= 0 means on or ahead of schedule.
type Snapshot struct {
	Playback State `json:"playback"`

	Clock          int64 `json:"clock"`
	Current        int64 `json:"current"` // remaining; negative = overtime
	Elapsed        int64 `json:"elapsed"`
	ExpectedFinish int64 `json:"expectedFinish"`
	AddedTime      int64 `json:"addedTime"`
	StartedAt      int64 `json:"startedAt"`
	FinishedAt     int64 `json:"finishedAt"`
	SecondaryTimer int64 `json:"secondaryTimer"` // roll-mode countdown to next start
	Offset         int64 `json:"offset"`

	Loaded             bool   `json:"loaded"`
	SelectedEventID    string `json:"selectedEventId"`
	NextEventID        string `json:"nextEventId"`
	SelectedEventIndex int    `json:"selectedEventIndex"` // 1-based, 0 when nothing loaded
	NumEvents          int    `json:"numEvents"`

	TitleNow  string `json:"titleNow"`
	TitleNext string `json:"titleNext"`
	CueNow    string `json:"cueNow"`

	// EndAction of the loaded event, consumed by the auto-advance policy.
	EndAction rundown.EndAction `json:"endAction,omitempty"`
}

// OnAir reports whether a timer is actively running.
func (s Snapshot) OnAir() bool {
	return s.Playback == StatePlay || s.Playback == StateRoll
}
