// SPDX-License-Identifier: MIT

package rundown

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string, start, end int64) Entry {
	return Entry{ID: id, Kind: KindEvent, TimeStart: start, TimeEnd: end}
}

func delay(d int64) Entry {
	return Entry{Kind: KindDelay, Duration: d}
}

func block() Entry {
	return Entry{Kind: KindBlock}
}

func TestPropagateDelays_ShiftAndBlockReset(t *testing.T) {
	// Worked example: A 08:00:00-08:30:00, one minute delay before B
	// (09:42:00), block before C resets the accumulator.
	entries := []Entry{
		event("A", 28800000, 30600000),
		delay(60000),
		event("B", 34920000, 36000000),
		block(),
		event("C", 40000000, 41000000),
	}

	sched := PropagateDelays(entries)
	require.Len(t, sched, 5)

	a, b, c := sched[0], sched[2], sched[4]
	assert.Equal(t, int64(28800000), a.EffectiveStart)
	assert.Equal(t, int64(30600000), a.EffectiveEnd)
	assert.Equal(t, int64(34980000), b.EffectiveStart, "delay must shift B by one minute")
	assert.Equal(t, int64(36060000), b.EffectiveEnd)
	assert.Equal(t, int64(40000000), c.EffectiveStart, "block must reset accumulated delay")
	assert.Equal(t, int64(0), c.RunningDelay)
}

func TestPropagateDelays_Idempotent(t *testing.T) {
	entries := []Entry{
		event("A", 28800000, 30600000),
		delay(90000),
		event("B", 34920000, 36000000),
		delay(-30000),
		event("C", 40000000, 41000000),
	}

	first := PropagateDelays(entries)
	second := PropagateDelays(entries)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("propagation not idempotent (-first +second):\n%s", diff)
	}
}

func TestPropagateDelays_SumPerBlockSpan(t *testing.T) {
	entries := []Entry{
		delay(60000),
		delay(30000),
		event("A", 1000000, 2000000),
		block(),
		delay(5000),
		event("B", 3000000, 4000000),
	}

	sched := PropagateDelays(entries)

	// Net shift in a span equals the sum of its delays; a delay after a
	// block must not reach back across it.
	assert.Equal(t, int64(1090000), sched[2].EffectiveStart)
	assert.Equal(t, int64(3005000), sched[5].EffectiveStart)
}

func TestPropagateDelays_NegativeDelayPullsEarlier(t *testing.T) {
	entries := []Entry{
		event("A", 1000000, 2000000),
		delay(-120000),
		event("B", 2060000, 3000000),
	}

	sched := PropagateDelays(entries)
	// B now starts before A ends; the walk reports it rather than clamping.
	assert.Equal(t, int64(1940000), sched[2].EffectiveStart)
}

func TestPropagateDelays_MalformedPassThrough(t *testing.T) {
	broken := Entry{ID: "X", Kind: KindEvent, TimeStart: TimeUnset, TimeEnd: TimeUnset}
	entries := []Entry{
		broken,
		delay(60000),
		event("B", 1000000, 2000000),
	}

	sched := PropagateDelays(entries)
	require.Len(t, sched, 3)

	// The corrupted entry is excluded from the walk but retained unchanged.
	assert.Equal(t, broken, sched[0].Entry)
	assert.Equal(t, TimeUnset, sched[0].EffectiveStart)
	assert.Equal(t, int64(1060000), sched[2].EffectiveStart)
}

func TestNormalizeStrategies(t *testing.T) {
	tests := []struct {
		name         string
		in           Entry
		wantEnd      int64
		wantDuration int64
	}{
		{
			name:         "lock_end_derives_duration",
			in:           Entry{Kind: KindEvent, TimeStart: 28800000, TimeEnd: 30600000, TimeStrategy: StrategyLockEnd},
			wantEnd:      30600000,
			wantDuration: 1800000,
		},
		{
			name:         "lock_duration_derives_end",
			in:           Entry{Kind: KindEvent, TimeStart: 28800000, Duration: 3600000, TimeStrategy: StrategyLockDuration},
			wantEnd:      32400000,
			wantDuration: 3600000,
		},
		{
			name:         "midnight_spanning_duration",
			in:           Entry{Kind: KindEvent, TimeStart: 86280000, TimeEnd: 120000, TimeStrategy: StrategyLockEnd}, // 23:58 -> 00:02
			wantEnd:      120000,
			wantDuration: 240000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantEnd, got.TimeEnd)
			assert.Equal(t, tt.wantDuration, got.Duration)
		})
	}
}

func TestValidateIDs(t *testing.T) {
	assert.NoError(t, ValidateIDs([]Entry{event("A", 0, 1), event("B", 1, 2)}))
	assert.ErrorIs(t, ValidateIDs([]Entry{event("A", 0, 1), event("A", 1, 2)}), ErrDuplicateID)
}
