// SPDX-License-Identifier: MIT

package playback

import "errors"

// Engine operations return typed errors; none of them panic across the
// boundary. Command handlers map these onto operator-facing responses.
var (
	// ErrInvalidEntry is returned when a load target is missing, skipped,
	// malformed, or not an event.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrNoEntryLoaded is returned when an operation requires a loaded event.
	ErrNoEntryLoaded = errors.New("no entry loaded")

	// ErrInvalidTransition is returned when an operation is not legal in the
	// current playback state.
	ErrInvalidTransition = errors.New("invalid transition")
)
