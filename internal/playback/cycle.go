// SPDX-License-Identifier: MIT

package playback

// Cycle is a timer lifecycle trigger point. The set is closed: automation
// subscriptions are validated against exactly these six values at config
// load, never at fire time.
type Cycle string

const (
	CycleOnLoad   Cycle = "onLoad"
	CycleOnStart  Cycle = "onStart"
	CycleOnPause  Cycle = "onPause"
	CycleOnStop   Cycle = "onStop"
	CycleOnUpdate Cycle = "onUpdate"
	CycleOnFinish Cycle = "onFinish"
)

// Cycles lists all lifecycle trigger points in firing-documentation order.
func Cycles() []Cycle {
	return []Cycle{CycleOnLoad, CycleOnStart, CycleOnPause, CycleOnStop, CycleOnUpdate, CycleOnFinish}
}

// Valid reports whether c is one of the six lifecycle points.
func (c Cycle) Valid() bool {
	switch c {
	case CycleOnLoad, CycleOnStart, CycleOnPause, CycleOnStop, CycleOnUpdate, CycleOnFinish:
		return true
	}
	return false
}
