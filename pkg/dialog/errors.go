package dialog

import "errors"

// Sentinel errors for the dialog package.
var (
	// ErrNoState indicates the call has no conversation state.
	ErrNoState = errors.New("dialog: no state for call")

	// ErrCallEnded indicates input arrived after the terminal phase.
	ErrCallEnded = errors.New("dialog: call already completed")

	// ErrNoHandler indicates no handler is registered for a phase.
	ErrNoHandler = errors.New("dialog: no handler for phase")
)
