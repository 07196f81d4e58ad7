package store

import "errors"

var (
	// ErrNotFound indicates no state exists for the call ID.
	ErrNotFound = errors.New("store: call state not found")

	// ErrAlreadyExists indicates Create was called for a live call ID.
	ErrAlreadyExists = errors.New("store: call state already exists")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
