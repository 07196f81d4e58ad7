package dialog

import (
	"context"
	"strings"
	"testing"
)

func insuranceState() *State {
	st := NewState("ins-test")
	st.Advance(PhaseInsurance)
	return st
}

func TestInsurancePayerThenMemberID(t *testing.T) {
	h := &insuranceHandler{retryLimit: DefaultRetryLimit}
	st := insuranceState()
	ctx := context.Background()

	res, err := h.Process(ctx, "Blue Cross", st)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Accepted || res.Next != PhaseInsurance {
		t.Fatalf("payer turn: %+v", res)
	}
	if st.Patient.Insurance.PayerName != "Blue Cross" {
		t.Errorf("payer = %q, want Blue Cross", st.Patient.Insurance.PayerName)
	}

	res, err = h.Process(ctx, "member id ABC123", st)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Accepted || res.Next != PhaseChiefComplaint {
		t.Fatalf("member id turn: %+v", res)
	}
	if st.Patient.Insurance.MemberID != "ABC123" {
		t.Errorf("member id = %q, want ABC123", st.Patient.Insurance.MemberID)
	}
}

func TestInsuranceSingleUtterance(t *testing.T) {
	h := &insuranceHandler{retryLimit: DefaultRetryLimit}
	st := insuranceState()

	res, err := h.Process(context.Background(), "I have Aetna and my member id is XYZ789A", st)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Accepted || res.Next != PhaseChiefComplaint {
		t.Fatalf("result: %+v", res)
	}
	if st.Patient.Insurance.PayerName != "Aetna" {
		t.Errorf("payer = %q", st.Patient.Insurance.PayerName)
	}
	if st.Patient.Insurance.MemberID != "XYZ789A" {
		t.Errorf("member id = %q", st.Patient.Insurance.MemberID)
	}
}

func TestInsurancePayerMatching(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"blue cross", "Blue Cross"},
		{"I have BCBS", "Blue Cross"},
		{"kaiser permanente", "Kaiser Permanente"},
		{"it's united healthcare", "United Healthcare"},
		{"medicare", "Medicare"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			if got := matchPayer(strings.ToLower(tc.input)); got != tc.want {
				t.Errorf("matchPayer(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestInsuranceUnknownPayerAccepted(t *testing.T) {
	h := &insuranceHandler{retryLimit: DefaultRetryLimit}
	st := insuranceState()

	res, err := h.Process(context.Background(), "Acme Health Cooperative", st)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("plausible payer rejected: %+v", res)
	}
	if st.Patient.Insurance.PayerName != "Acme Health Cooperative" {
		t.Errorf("payer = %q", st.Patient.Insurance.PayerName)
	}
}

func TestInsuranceMetaPhraseRejected(t *testing.T) {
	h := &insuranceHandler{retryLimit: DefaultRetryLimit}
	st := insuranceState()

	res, err := h.Process(context.Background(), "hello? are you there", st)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Accepted {
		t.Errorf("meta phrase accepted as payer: %+v", res)
	}
	if st.Patient.Insurance != nil && st.Patient.Insurance.PayerName != "" {
		t.Errorf("payer recorded from meta phrase: %+v", st.Patient.Insurance)
	}
}

func TestInsuranceRepeatedPayerNotTakenAsID(t *testing.T) {
	h := &insuranceHandler{retryLimit: DefaultRetryLimit}
	st := insuranceState()
	ctx := context.Background()

	if _, err := h.Process(ctx, "cigna", st); err != nil {
		t.Fatalf("payer turn: %v", err)
	}
	res, err := h.Process(ctx, "I told you, Cigna", st)
	if err != nil {
		t.Fatalf("repeat turn: %v", err)
	}
	if res.Accepted {
		t.Errorf("repeated payer accepted as member id: %+v", res)
	}
	if st.Patient.Insurance.MemberID != "" {
		t.Errorf("member id = %q, want empty", st.Patient.Insurance.MemberID)
	}
}

func TestInsuranceRetryExhaustionAcceptsAsIs(t *testing.T) {
	h := &insuranceHandler{retryLimit: 2}
	st := insuranceState()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := h.Process(ctx, "um", st)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if res.Accepted {
			t.Fatalf("turn %d accepted a non-answer", i)
		}
	}

	res, err := h.Process(ctx, "some tiny plan", st)
	if err != nil {
		t.Fatalf("exhausted turn: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("retry budget spent but input still rejected: %+v", res)
	}
	if !res.BestEffort {
		t.Errorf("exhausted acceptance not flagged best-effort: %+v", res)
	}
	if st.Patient.Insurance.PayerName != "some tiny plan" {
		t.Errorf("payer = %q", st.Patient.Insurance.PayerName)
	}
}
