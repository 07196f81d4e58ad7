// Package store persists conversation state snapshots keyed by call ID.
// Entries carry a TTL so abandoned calls age out without manual cleanup.
// Snapshots are serialized copies: mutating a returned state never
// touches the stored one.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// DefaultTTL is how long a call's state survives after its last write.
const DefaultTTL = 30 * time.Minute

// Store is a TTL-bounded snapshot store for conversation state.
type Store interface {
	// Create stores the initial state for a call. Fails with
	// ErrAlreadyExists when the call ID is already present.
	Create(ctx context.Context, st *dialog.State) error

	// Get returns a copy of the state for a call, or ErrNotFound.
	Get(ctx context.Context, callID string) (*dialog.State, error)

	// Update replaces the state for an existing call and refreshes its
	// TTL. Fails with ErrNotFound when the call is gone or expired.
	Update(ctx context.Context, st *dialog.State) error

	// Delete removes a call's state. Deleting an absent call is not an
	// error; teardown paths may run more than once.
	Delete(ctx context.Context, callID string) error

	// Close releases any resources held by the store.
	Close() error
}

// encode serializes a state snapshot.
func encode(st *dialog.State) ([]byte, error) {
	if st == nil {
		return nil, fmt.Errorf("store: nil state")
	}
	if st.CallID == "" {
		return nil, fmt.Errorf("store: state without call id")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("store: encode state: %w", err)
	}
	return data, nil
}

// decode deserializes a snapshot and restores the fields the JSON form
// does not carry directly.
func decode(data []byte) (*dialog.State, error) {
	var st dialog.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("store: decode state: %w", err)
	}
	if p, ok := dialog.ParsePhase(st.PhaseName); ok {
		st.Phase = p
	}
	if st.Retries == nil {
		st.Retries = make(map[dialog.Phase]int)
	}
	return &st, nil
}
