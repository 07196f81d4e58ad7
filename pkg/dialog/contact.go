package dialog

import (
	"context"
	"regexp"
	"strings"
)

var digitsOnlyRe = regexp.MustCompile(`\D`)

// contactHandler collects the phone number, then the email address.
// Outside production the email question is skipped and a test address is
// recorded, matching how staging calls are placed.
type contactHandler struct {
	production bool
	testEmail  string
}

func (h *contactHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	if st.Patient.PhoneNumber == "" {
		return h.phoneStep(input, st), nil
	}
	return h.emailStep(input, st), nil
}

func (h *contactHandler) phoneStep(input string, st *State) Result {
	phone, ok := ValidPhone(input)
	if !ok {
		// Partial numbers with at least 7 digits are kept as-is rather
		// than looping on a caller who is clearly answering.
		digits := digitsOnlyRe.ReplaceAllString(input, "")
		if len(digits) >= 7 {
			phone = digits
			ok = true
		}
	}
	if !ok {
		st.Retry()
		return Result{
			Response: "I didn't catch a phone number. Please say the digits clearly, for example '765 771 0488'. What's the best phone number to reach you at?",
			Next:     PhaseContactInfo,
		}
	}

	st.Patient.PhoneNumber = phone
	st.ResetRetries()

	if !h.production {
		st.Patient.Email = h.testEmail
		return Result{
			Response: "Thank you! Now let me find available doctors for you based on your needs.",
			Next:     PhaseProviderSelection,
			Accepted: true,
		}
	}

	return Result{
		Response: "Perfect! And may I have your email address for appointment confirmations?",
		Next:     PhaseContactInfo,
		Accepted: true,
	}
}

func (h *contactHandler) emailStep(input string, st *State) Result {
	if email, ok := ValidEmail(strings.ReplaceAll(input, " at ", "@")); ok {
		st.Patient.Email = email
	} else if email, ok := ValidEmail(input); ok {
		st.Patient.Email = email
	}
	// A bad email is not worth stalling the call over; move on either way.

	st.ResetRetries()
	return Result{
		Response: "Thank you! Now let me find available doctors for you based on your needs.",
		Next:     PhaseProviderSelection,
		Accepted: true,
	}
}
