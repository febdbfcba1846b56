// SPDX-License-Identifier: MIT

package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

func TestFrameRoundTrip(t *testing.T) {
	snap := playback.Snapshot{
		Playback:           playback.StatePlay,
		Clock:              28805000,
		Current:            1795000,
		Elapsed:            5000,
		ExpectedFinish:     30600000,
		AddedTime:          -60000,
		StartedAt:          28800000,
		FinishedAt:         rundown.TimeUnset,
		SecondaryTimer:     rundown.TimeUnset,
		Offset:             0,
		Loaded:             true,
		SelectedEventID:    "a",
		NextEventID:        "b",
		SelectedEventIndex: 0,
		NumEvents:          3,
		TitleNow:           "Opening",
		TitleNext:          "Keynote",
	}

	payload, err := json.Marshal(NewFrame(12, snap))
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, uint64(12), decoded.Revision)
	assert.True(t, decoded.OnAir)

	got := decoded.ToSnapshot()
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameUnsetFieldsAreNull(t *testing.T) {
	snap := playback.Snapshot{
		Playback:       playback.StateStop,
		Clock:          1000,
		Current:        rundown.TimeUnset,
		ExpectedFinish: rundown.TimeUnset,
		StartedAt:      rundown.TimeUnset,
		FinishedAt:     rundown.TimeUnset,
		SecondaryTimer: rundown.TimeUnset,
	}

	payload, err := json.Marshal(NewFrame(1, snap))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	var timer map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["timer"], &timer))

	for _, field := range []string{"expectedFinish", "startedAt", "finishedAt", "secondaryTimer"} {
		assert.JSONEq(t, "null", string(timer[field]), field)
	}

	var decoded Frame
	require.NoError(t, json.Unmarshal(payload, &decoded))
	back := decoded.ToSnapshot()
	assert.Equal(t, rundown.TimeUnset, back.ExpectedFinish)
	assert.Equal(t, rundown.TimeUnset, back.StartedAt)
	assert.False(t, back.Loaded)
}
