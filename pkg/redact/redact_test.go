package redact

import (
	"testing"

	"github.com/carelane/voicedesk/pkg/dialog"
)

func TestMemberID(t *testing.T) {
	if got := MemberID("ABC123"); got != "****23" {
		t.Errorf("MemberID = %q, want ****23", got)
	}
	if got := MemberID("AB"); got != "**" {
		t.Errorf("short MemberID = %q, want **", got)
	}
	if got := MemberID(""); got != "" {
		t.Errorf("empty MemberID = %q, want empty", got)
	}
}

func TestPhone(t *testing.T) {
	if got := Phone("5551234567"); got != "******4567" {
		t.Errorf("Phone = %q, want ******4567", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email("patient@example.com"); got != "p******@example.com" {
		t.Errorf("Email = %q", got)
	}
	if got := Email("not-an-email"); got != "not-an-email" {
		t.Errorf("non-email mutated: %q", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my number is 5551234567", "my number is ********67"},
		{"member id is ABC123", "member id is ABC123"}, // short digit run survives
		{"reach me at jane.doe@example.com", "reach me at j*******@example.com"},
		{"nothing sensitive here", "nothing sensitive here"},
	}

	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestState(t *testing.T) {
	st := dialog.NewState("call-1")
	st.Patient.Insurance = &dialog.Insurance{PayerName: "Blue Cross", MemberID: "ABC123"}
	st.Patient.PhoneNumber = "5551234567"
	st.Patient.Email = "patient@example.com"
	st.Patient.Address = &dialog.Address{Street: "123 Main St"}
	st.AddTranscript("caller", "my member id is 123456789")
	st.Advance(dialog.PhaseScheduling)

	got := State(st)

	if got.Patient.Insurance.MemberID != "****23" {
		t.Errorf("member id = %q", got.Patient.Insurance.MemberID)
	}
	if got.Patient.Insurance.PayerName != "Blue Cross" {
		t.Errorf("payer masked, should stay readable: %q", got.Patient.Insurance.PayerName)
	}
	if got.Patient.PhoneNumber != "******4567" {
		t.Errorf("phone = %q", got.Patient.PhoneNumber)
	}
	if got.Patient.Email != "p******@example.com" {
		t.Errorf("email = %q", got.Patient.Email)
	}
	if got.Transcript[0].Text != "my member id is *******89" {
		t.Errorf("transcript = %q", got.Transcript[0].Text)
	}
	if got.Phase != dialog.PhaseScheduling {
		t.Errorf("phase = %v, want %v", got.Phase, dialog.PhaseScheduling)
	}

	// The original state is untouched.
	if st.Patient.Insurance.MemberID != "ABC123" {
		t.Error("redaction mutated the original state")
	}
	if st.Transcript[0].Text != "my member id is 123456789" {
		t.Error("redaction mutated the original transcript")
	}
}
