package dialog

import "context"

// confirmationHandler closes the call. Whatever the caller says at this
// point, the appointment is booked; the notification is dispatched in the
// background and never blocks the goodbye.
type confirmationHandler struct{}

func (h *confirmationHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	return Result{
		Response: promptCompleted,
		Next:     PhaseCompleted,
		Accepted: true,
		Notify:   true,
		HangUp:   true,
	}, nil
}
