package dialog

import "context"

// greetingHandler covers the window between the spoken greeting and the
// first insurance answer. The greeting itself already asks for insurance
// details, so any caller speech here just moves the phase forward and is
// handed to the insurance handler.
type greetingHandler struct {
	insurance Handler
}

func (h *greetingHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	st.Advance(PhaseInsurance)
	return h.insurance.Process(ctx, input, st)
}

// Greeting returns the utterances spoken as soon as a call connects.
// They are separate so each is synthesized as its own unit.
func Greeting() []string {
	return []string{greetingLine1, greetingLine2, promptInsurance}
}
