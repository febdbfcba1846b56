// SPDX-License-Identifier: MIT

// Package timeutil provides milliseconds-of-day arithmetic shared by the
// schedule and playback packages. All values are int64 milliseconds; a day is
// DayMs long and clock values wrap at the day boundary.
package timeutil

import "fmt"

const (
	// DayMs is the length of one day in milliseconds.
	DayMs int64 = 24 * 60 * 60 * 1000

	// MinuteMs is one minute in milliseconds.
	MinuteMs int64 = 60 * 1000
)

// Normalize maps an arbitrary millisecond value into [0, DayMs).
// Negative values wrap backwards into the previous day.
func Normalize(ms int64) int64 {
	m := ms % DayMs
	if m < 0 {
		m += DayMs
	}
	return m
}

// DaySpan reports how many midnight crossings a total end time falls across.
// A total end within the first day yields 0.
func DaySpan(endTotal int64) int {
	if endTotal < DayMs {
		return 0
	}
	return int(endTotal / DayMs)
}

// WrapDuration returns the duration from start to end on the day clock,
// treating an end numerically before the start as spanning into the next day.
func WrapDuration(start, end int64) int64 {
	d := Normalize(end) - Normalize(start)
	if d < 0 {
		d += DayMs
	}
	return d
}

// Contains reports whether now (a clock-of-day value) falls inside the
// interval [start, end) on the day clock, honouring midnight wraparound.
func Contains(start, end, now int64) bool {
	s := Normalize(start)
	e := Normalize(end)
	n := Normalize(now)
	if s == e {
		return false
	}
	if s < e {
		return n >= s && n < e
	}
	// Interval crosses midnight.
	return n >= s || n < e
}

// Until returns the clock-of-day distance from now until target, in [0, DayMs).
func Until(now, target int64) int64 {
	return WrapDuration(now, target)
}

// SignedDiff returns the signed shortest distance from b to a on the day
// clock, in (-DayMs/2, DayMs/2]. Positive means a lies after b.
func SignedDiff(a, b int64) int64 {
	d := Normalize(a - b)
	if d > DayMs/2 {
		d -= DayMs
	}
	return d
}

// FormatClock renders a millisecond-of-day value as hh:mm:ss for logs.
func FormatClock(ms int64) string {
	ms = Normalize(ms)
	h := ms / (60 * MinuteMs)
	m := (ms / MinuteMs) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
