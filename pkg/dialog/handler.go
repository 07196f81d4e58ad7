// Package dialog implements the phase-based intake conversation: a state
// machine over a fixed, forward-only phase ordering, with one stateless
// handler per phase. All per-call mutable data lives in State; handlers
// hold only collaborator references and are shared across calls.
package dialog

import (
	"context"
	"time"
)

// Result is what a phase handler returns for one caller utterance.
type Result struct {
	// Response is the text to speak back to the caller.
	Response string

	// Next is the phase to move to. Equal to the current phase for a
	// retry-in-place. The orchestrator refuses backward moves.
	Next Phase

	// Accepted reports whether the input was understood and acted on.
	// Rejected input feeds the call-wide consecutive-error ceiling.
	Accepted bool

	// BestEffort reports that the input was accepted as-is because the
	// phase's retry limit was reached, not because it validated.
	BestEffort bool

	// Notify requests the confirmation notification to be dispatched.
	Notify bool

	// HangUp ends the call after the response has been spoken.
	HangUp bool
}

// Handler processes caller input for one phase.
// Implementations must be stateless across calls.
type Handler interface {
	Process(ctx context.Context, input string, st *State) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, input string, st *State) (Result, error)

func (f HandlerFunc) Process(ctx context.Context, input string, st *State) (Result, error) {
	return f(ctx, input, st)
}

// Chooser resolves an ambiguous spoken choice to an option index.
// Implementations must respect the context deadline; callers fall back to
// a deterministic default on any error.
type Chooser interface {
	ClassifyChoice(ctx context.Context, input string, options []string) (int, error)
}

// AddressVerifier validates a parsed address against an external lookup.
// A failed lookup is not an error the caller experiences: the address is
// kept unverified.
type AddressVerifier interface {
	Verify(ctx context.Context, addr Address) (Address, error)
}

// CareProvider is one schedulable provider offered to the caller.
type CareProvider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Slot is one offered appointment time.
type Slot struct {
	At       time.Time `json:"at"`
	Display  string    `json:"display"`
	Keywords []string  `json:"keywords,omitempty"`
}

// ProviderSource supplies providers and open slots for scheduling.
type ProviderSource interface {
	Providers(ctx context.Context, complaint, payer string) ([]CareProvider, error)
	Slots(ctx context.Context, providerID string) ([]Slot, error)
}
