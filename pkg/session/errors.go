package session

import "errors"

var (
	// ErrDuplicateCall indicates a session already exists for the call ID.
	ErrDuplicateCall = errors.New("session: call already in progress")

	// ErrUnknownCall indicates no session exists for the call ID.
	ErrUnknownCall = errors.New("session: unknown call")

	// ErrShuttingDown indicates the manager no longer accepts calls.
	ErrShuttingDown = errors.New("session: manager shutting down")
)
