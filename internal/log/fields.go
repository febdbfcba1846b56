// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldCommandID = "command_id"
	FieldEntryID   = "entry_id"
	FieldClientID  = "client_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCycle     = "cycle"
	FieldTarget    = "target"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldRevision = "revision"

	// Timer fields
	FieldClock   = "clock"
	FieldElapsed = "elapsed"
	FieldCurrent = "current"
	FieldOffset  = "offset"
)
