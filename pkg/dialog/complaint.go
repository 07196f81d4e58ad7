package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var urgentKeywords = []string{
	"emergency", "chest pain", "can't breathe", "bleeding", "unconscious",
}

var painScaleRe = regexp.MustCompile(`\b([1-9]|10)\b`)

// complaintHandler records the chief complaint, then one follow-up turn
// for duration and a 1-10 severity rating.
type complaintHandler struct{}

func (h *complaintHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	if st.Patient.ChiefComplaint == "" {
		return h.initialComplaint(input, st), nil
	}
	if !st.ComplaintDetailed {
		return h.details(input, st), nil
	}

	return Result{
		Response: "Thank you for that information. Now I need to collect your address for our records. Could you please provide your complete street address?",
		Next:     PhaseDemographics,
		Accepted: true,
	}, nil
}

func (h *complaintHandler) initialComplaint(input string, st *State) Result {
	st.Patient.ChiefComplaint = strings.TrimSpace(input)

	lower := strings.ToLower(input)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return Result{
				Response: "This sounds like it may need immediate attention. If this is an emergency, please hang up and dial 911. Otherwise, how long have you been experiencing these symptoms?",
				Next:     PhaseChiefComplaint,
				Accepted: true,
			}
		}
	}

	return Result{
		Response: "I understand. How long have you been experiencing these symptoms? And on a scale of 1 to 10, how would you rate your discomfort?",
		Next:     PhaseChiefComplaint,
		Accepted: true,
	}
}

func (h *complaintHandler) details(input string, st *State) Result {
	if m := painScaleRe.FindString(input); m != "" {
		var level int
		fmt.Sscanf(m, "%d", &level)
		st.Patient.UrgencyLevel = level
	}

	st.Patient.ChiefComplaint += fmt.Sprintf(" (Duration: %s)", strings.TrimSpace(input))
	st.ComplaintDetailed = true

	return Result{
		Response: "Thank you for that information. Now I need to verify your address. Could you please provide your complete street address including city, state, and zip code?",
		Next:     PhaseDemographics,
		Accepted: true,
	}
}
