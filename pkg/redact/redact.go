// Package redact masks patient identifiers before state snapshots
// leave the call path, for logs and the debug endpoint. Masking keeps
// just enough of each value to correlate with upstream systems.
package redact

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/carelane/voicedesk/pkg/dialog"
)

var (
	digitRunRe = regexp.MustCompile(`\d{5,}`)
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// MemberID masks an insurance member ID, keeping the last two
// characters.
func MemberID(s string) string {
	return keepLast(s, 2)
}

// Phone masks a phone number, keeping the last four digits.
func Phone(s string) string {
	return keepLast(s, 4)
}

// Email masks the local part of an email address down to its first
// character.
func Email(s string) string {
	at := strings.IndexByte(s, '@')
	if at <= 1 {
		return s
	}
	return s[:1] + strings.Repeat("*", at-1) + s[at:]
}

// Text masks identifier-like content inside free text: long digit runs
// and email addresses. Spoken member IDs and phone numbers land in the
// transcript as digit runs.
func Text(s string) string {
	s = emailRe.ReplaceAllStringFunc(s, Email)
	return digitRunRe.ReplaceAllStringFunc(s, func(run string) string {
		return keepLast(run, 2)
	})
}

func keepLast(s string, n int) string {
	if len(s) <= n {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-n) + s[len(s)-n:]
}

// State returns a deep copy of a conversation state with patient
// identifiers masked. The original is never touched.
func State(st *dialog.State) *dialog.State {
	if st == nil {
		return nil
	}

	// JSON round trip for a deep copy; the state is designed to survive
	// serialization.
	data, err := json.Marshal(st)
	if err != nil {
		return &dialog.State{CallID: st.CallID}
	}
	var out dialog.State
	if err := json.Unmarshal(data, &out); err != nil {
		return &dialog.State{CallID: st.CallID}
	}
	if p, ok := dialog.ParsePhase(out.PhaseName); ok {
		out.Phase = p
	}

	if ins := out.Patient.Insurance; ins != nil {
		ins.MemberID = MemberID(ins.MemberID)
		ins.GroupNumber = MemberID(ins.GroupNumber)
	}
	out.Patient.PhoneNumber = Phone(out.Patient.PhoneNumber)
	out.Patient.Email = Email(out.Patient.Email)
	if addr := out.Patient.Address; addr != nil {
		addr.Street = Text(addr.Street)
	}
	for i := range out.Transcript {
		out.Transcript[i].Text = Text(out.Transcript[i].Text)
	}
	return &out
}
