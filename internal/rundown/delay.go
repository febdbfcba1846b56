// SPDX-License-Identifier: MIT

package rundown

// Scheduled pairs an entry with its delay-adjusted times. Effective times are
// raw clock values plus the running delay and may fall outside [0, DayMs);
// the index normalizes them during day accounting.
type Scheduled struct {
	Entry
	// RunningDelay is the accumulated delay in force at this entry.
	RunningDelay int64
	// EffectiveStart and EffectiveEnd are TimeUnset for non-events and
	// malformed events, which pass through the walk untouched.
	EffectiveStart int64
	EffectiveEnd   int64
}

// PropagateDelays walks the ordered entry list once, carrying an accumulator
// that starts at zero, grows by each delay's duration and resets at each
// block. The walk is pure and idempotent: it never mutates its input and the
// same input always yields the same output.
func PropagateDelays(entries []Entry) []Scheduled {
	out := make([]Scheduled, 0, len(entries))
	var runningDelay int64

	for _, raw := range entries {
		s := Scheduled{Entry: raw, EffectiveStart: TimeUnset, EffectiveEnd: TimeUnset}
		switch raw.Kind {
		case KindBlock:
			runningDelay = 0
		case KindDelay:
			runningDelay += raw.Duration
		case KindEvent:
			if raw.IsMalformed() {
				// Corrupted entries are excluded from the walk but retained
				// unchanged so they stay visible to the operator.
				break
			}
			e := raw.Normalize()
			s.Entry = e
			s.EffectiveStart = e.TimeStart + runningDelay
			s.EffectiveEnd = s.EffectiveStart + e.Duration
		}
		s.RunningDelay = runningDelay
		out = append(out, s)
	}
	return out
}
