package dialog

import (
	"context"
	"regexp"
	"strings"
)

var streetKeywords = []string{
	"street", "st", "avenue", "ave", "road", "rd", "drive", "dr", "lane", "ln",
	"boulevard", "blvd", "way", "court", "ct", "place", "pl", "parkway", "pkwy",
}

var usStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// demographicsHandler collects and optionally verifies the caller's
// address. Verification failures never block the call; the address is
// kept unverified.
type demographicsHandler struct {
	verifier AddressVerifier
}

func (h *demographicsHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	parts := parseAddress(input)

	if h.verifier != nil && parts.Street != "" {
		if verified, err := h.verifier.Verify(ctx, parts); err == nil && verified.Validated {
			st.Patient.Address = &verified
			st.ResetRetries()
			return Result{
				Response: "Great! I've verified your address. Now, what's the best phone number to reach you at?",
				Next:     PhaseContactInfo,
				Accepted: true,
			}, nil
		}
	}

	// Not verified: accept anything that plausibly is an address.
	lower := strings.ToLower(strings.TrimSpace(input))
	hasDigit := strings.ContainsAny(input, "0123456789")
	hasStreetWord := false
	for _, kw := range streetKeywords {
		if containsWord(lower, kw) {
			hasStreetWord = true
			break
		}
	}

	looksLikeAddress := (hasDigit && hasStreetWord) || len(strings.Fields(input)) >= 4
	if looksLikeAddress && !nonAnswers[lower] {
		addr := parts
		if addr.Street == "" {
			addr.Street = strings.TrimSpace(input)
		}
		addr.Validated = false
		addr.ValidationMessage = "Captured without verification"
		st.Patient.Address = &addr
		st.ResetRetries()
		return Result{
			Response: "Thanks! What's the best phone number to reach you at?",
			Next:     PhaseContactInfo,
			Accepted: true,
		}, nil
	}

	st.Retry()
	return Result{
		Response: "I need your complete street address for our records. Please provide your house number and street name, like '150 Van Ness Ave, San Francisco, CA 94102'.",
		Next:     PhaseDemographics,
	}, nil
}

// parseAddress splits free-form spoken text into address components.
// ZIP and state are extracted reliably; the street/city split is a
// heuristic.
func parseAddress(text string) Address {
	var addr Address

	addr.ZipCode, text = ExtractZip(text)

	upper := strings.ToUpper(text)
	for _, state := range usStates {
		if strings.Contains(upper, " "+state+" ") || strings.HasSuffix(upper, " "+state) {
			addr.State = state
			text = regexp.MustCompile(`(?i)\b`+state+`\b`).ReplaceAllString(text, "")
			text = strings.TrimSpace(text)
			break
		}
	}

	words := strings.Fields(strings.Trim(text, " ,"))
	if len(words) >= 3 {
		cityWords := 1
		if len(words) >= 5 {
			cityWords = 2
		}
		addr.City = strings.Join(words[len(words)-cityWords:], " ")
		addr.Street = strings.TrimRight(strings.Join(words[:len(words)-cityWords], " "), ",")
	} else {
		addr.Street = strings.Join(words, " ")
	}

	return addr
}
