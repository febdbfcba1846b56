// SPDX-License-Identifier: MIT

// Package clock supplies wall-clock milliseconds-of-day to the playback
// engine. The engine treats the source as a pure Now() function; this package
// provides the system-backed implementation and a manual one for tests.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/stagecast/rundownd/internal/timeutil"
)

// Millis is a millisecond count. Clock-of-day values live in [0, DayMs).
type Millis = int64

// Source yields the current time as milliseconds since midnight.
type Source interface {
	Now() Millis
}

// SystemSource reads the local system clock. An optional offset (signed
// milliseconds) shifts the reported time, used when the show clock is synced
// against an external reference.
type SystemSource struct {
	offset atomic.Int64
	now    func() time.Time // test seam, defaults to time.Now
}

// NewSystemSource returns a system-clock source with no offset applied.
func NewSystemSource() *SystemSource {
	return &SystemSource{now: time.Now}
}

// Now returns the current local milliseconds-of-day, offset applied.
func (s *SystemSource) Now() Millis {
	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	t := nowFn()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	ms := t.Sub(midnight).Milliseconds()
	return timeutil.Normalize(ms + s.offset.Load())
}

// SetOffset replaces the source offset in milliseconds.
func (s *SystemSource) SetOffset(ms Millis) {
	s.offset.Store(ms)
}

// Offset returns the currently applied offset.
func (s *SystemSource) Offset() Millis {
	return s.offset.Load()
}

// ManualSource is a settable clock for tests and deterministic replays.
type ManualSource struct {
	ms atomic.Int64
}

// NewManualSource returns a manual source frozen at the given time.
func NewManualSource(at Millis) *ManualSource {
	s := &ManualSource{}
	s.ms.Store(at)
	return s
}

// Now returns the frozen time.
func (s *ManualSource) Now() Millis {
	return timeutil.Normalize(s.ms.Load())
}

// Set moves the frozen time to at.
func (s *ManualSource) Set(at Millis) {
	s.ms.Store(at)
}

// Advance moves the frozen time forward by d milliseconds.
func (s *ManualSource) Advance(d Millis) {
	s.ms.Add(d)
}
