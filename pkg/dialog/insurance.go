package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// knownPayers maps spoken fragments to canonical payer names.
var knownPayers = []struct {
	pattern string
	name    string
}{
	{"blue cross", "Blue Cross"},
	{"bcbs", "Blue Cross"},
	{"blue shield", "Blue Cross"},
	{"aetna", "Aetna"},
	{"cigna", "Cigna"},
	{"humana", "Humana"},
	{"kaiser", "Kaiser Permanente"},
	{"united", "United Healthcare"},
	{"uhc", "United Healthcare"},
	{"anthem", "Anthem"},
	{"medicare", "Medicare"},
	{"medicaid", "Medicaid"},
	{"tricare", "Tricare"},
	{"wellpoint", "WellPoint"},
	{"centene", "Centene"},
	{"molina", "Molina Healthcare"},
	{"health net", "Health Net"},
	{"carefirst", "CareFirst"},
	{"highmark", "Highmark"},
	{"oxford", "Oxford Health"},
}

// metaPhrases are comments about the agent itself, never a payer name.
var metaPhrases = []string{
	"you were supposed", "why did you", "stop speaking", "can you hear",
	"hello?", "are you there", "did you stop",
}

var nonAnswers = map[string]bool{
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"what": true, "huh": true, "um": true, "uh": true,
}

var memberIDAfterLabelRe = regexp.MustCompile(`(?:MEMBER\s*ID|ID\s*NUMBER|ID|NUMBER)(?:\s+IS)?[\s:]*([A-Z0-9]+)`)

// insuranceHandler collects the payer name and member ID, in either order
// or both in one utterance.
type insuranceHandler struct {
	retryLimit int
}

func (h *insuranceHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	// Complete already: confirm and move on without burning a turn.
	if ins := st.Patient.Insurance; ins != nil && ins.PayerName != "" && ins.MemberID != "" {
		return Result{
			Response: "Thank you for the insurance information. Now, what's the main reason you'd like to see a doctor today?",
			Next:     PhaseChiefComplaint,
			Accepted: true,
		}, nil
	}

	if res, ok := h.parseComplete(input, st); ok {
		return res, nil
	}

	if st.Patient.Insurance == nil || st.Patient.Insurance.PayerName == "" {
		return h.payerStep(input, st), nil
	}
	return h.memberIDStep(input, st), nil
}

// parseComplete handles a single utterance carrying both payer and ID,
// e.g. "I have Aetna and my member ID is ABC123".
func (h *insuranceHandler) parseComplete(input string, st *State) (Result, bool) {
	lower := strings.ToLower(input)

	hasID := strings.Contains(lower, "member id") || strings.Contains(lower, "id is") ||
		strings.Contains(lower, "number is")
	hasPayer := strings.Contains(lower, "insurance") || strings.Contains(lower, "have") ||
		strings.Contains(lower, "my")
	if !hasID || !hasPayer {
		return Result{}, false
	}

	payer := matchPayer(lower)
	memberID := ""
	if m := memberIDAfterLabelRe.FindStringSubmatch(strings.ToUpper(input)); m != nil {
		memberID = m[1]
	} else if m, ok := ExtractMemberID(input); ok && len(m) >= 6 {
		memberID = m
	}

	if payer == "" || memberID == "" {
		return Result{}, false
	}

	st.Patient.Insurance = &Insurance{PayerName: payer, MemberID: memberID}
	st.ResetRetries()
	return Result{
		Response: fmt.Sprintf("Perfect! I have your insurance information: %s with member ID %s. Now, what brings you in today? Please describe your main health concern.", payer, memberID),
		Next:     PhaseChiefComplaint,
		Accepted: true,
	}, true
}

func (h *insuranceHandler) payerStep(input string, st *State) Result {
	attempt := st.Retry()

	// Retry budget spent: take the utterance as-is rather than loop.
	if attempt > h.retryLimit {
		payer := strings.TrimSpace(input)
		st.Patient.Insurance = &Insurance{PayerName: payer}
		st.ResetRetries()
		return Result{
			Response:   fmt.Sprintf("Thank you. I have %s as your insurance provider. Now, could you please provide your member ID number?", payer),
			Next:       PhaseInsurance,
			Accepted:   true,
			BestEffort: true,
		}
	}

	lower := strings.ToLower(input)
	for _, p := range metaPhrases {
		if strings.Contains(lower, p) {
			return Result{
				Response: "I need your insurance provider name, like Kaiser, Blue Cross, Aetna, Cigna, or UnitedHealthcare. What insurance do you have?",
				Next:     PhaseInsurance,
			}
		}
	}

	payer := matchPayer(lower)
	if payer == "" {
		// Unrecognized but plausible: accept the caller's own wording.
		cleaned := lower
		for _, w := range []string{"my", "insurance", "is", "i have", "it's", "its", "the", "provider"} {
			cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, w, ""))
		}
		if len(cleaned) >= 3 && !nonAnswers[cleaned] && !isDigits(cleaned) {
			payer = strings.TrimSpace(input)
		}
	}

	if payer == "" {
		return Result{
			Response: "I need your insurance provider name. For example, you might say 'Kaiser' or 'Blue Cross' or the name on your insurance card. What insurance do you have?",
			Next:     PhaseInsurance,
		}
	}

	if st.Patient.Insurance == nil {
		st.Patient.Insurance = &Insurance{}
	}
	st.Patient.Insurance.PayerName = payer
	st.ResetRetries()
	return Result{
		Response: fmt.Sprintf("Thank you. I have %s as your insurance provider. Now, could you please provide your member ID number?", payer),
		Next:     PhaseInsurance,
		Accepted: true,
	}
}

func (h *insuranceHandler) memberIDStep(input string, st *State) Result {
	attempt := st.Retry()
	ins := st.Patient.Insurance

	if attempt > h.retryLimit {
		if id, ok := ExtractMemberID(input); ok {
			ins.MemberID = id
			st.ResetRetries()
			return Result{
				Response:   "Perfect! I have your insurance information. Now, what brings you in today? Please describe your main health concern.",
				Next:       PhaseChiefComplaint,
				Accepted:   true,
				BestEffort: true,
			}
		}
	}

	// Caller repeating the payer name instead of the ID.
	if ins.PayerName != "" && strings.Contains(strings.ToLower(input), strings.ToLower(ins.PayerName)) {
		return Result{
			Response: "I already have your insurance provider. I need your member ID number, the unique number on your insurance card. Could you please provide that?",
			Next:     PhaseInsurance,
		}
	}

	id, ok := ValidMemberID(input)
	if !ok {
		id, ok = ExtractMemberID(input)
	}
	if !ok {
		return Result{
			Response: "I need your member ID number from your insurance card. It's usually a combination of letters and numbers. Could you please say it slowly?",
			Next:     PhaseInsurance,
		}
	}

	ins.MemberID = id
	st.ResetRetries()
	return Result{
		Response: fmt.Sprintf("Perfect! I have your insurance information: %s with member ID %s. Now, what brings you in today?", ins.PayerName, id),
		Next:     PhaseChiefComplaint,
		Accepted: true,
	}
}

func matchPayer(lower string) string {
	for _, p := range knownPayers {
		if strings.Contains(lower, p.pattern) {
			return p.name
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
