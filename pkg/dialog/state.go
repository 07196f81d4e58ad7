package dialog

import (
	"time"
)

// Insurance holds the caller's insurance details.
type Insurance struct {
	PayerName   string `json:"payer_name"`
	MemberID    string `json:"member_id"`
	GroupNumber string `json:"group_number,omitempty"`
}

// Address holds a mailing address, optionally verified by the
// address-validation collaborator.
type Address struct {
	Street            string `json:"street"`
	City              string `json:"city"`
	State             string `json:"state"`
	ZipCode           string `json:"zip_code"`
	Validated         bool   `json:"validated"`
	ValidationMessage string `json:"validation_message,omitempty"`
}

// PatientInfo accumulates the structured data collected during a call.
type PatientInfo struct {
	Insurance      *Insurance `json:"insurance,omitempty"`
	ChiefComplaint string     `json:"chief_complaint,omitempty"`
	UrgencyLevel   int        `json:"urgency_level,omitempty"` // 1-10, 0 = not stated
	Address        *Address   `json:"address,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	Email          string     `json:"email,omitempty"`
	Provider       string     `json:"selected_provider,omitempty"`
	AppointmentAt  time.Time  `json:"appointment_datetime,omitempty"`
}

// TranscriptEntry is one ordered line of the call transcript.
type TranscriptEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"` // "caller" or "agent"
	Text      string    `json:"text"`
}

// State is the mutable conversation payload for one call.
// It has exactly one writer: the orchestrator goroutine for that call.
type State struct {
	CallID    string      `json:"call_id"`
	Phase     Phase       `json:"-"`
	PhaseName string      `json:"phase"`
	Patient   PatientInfo `json:"patient_info"`
	StartedAt time.Time   `json:"start_time"`

	// ErrorCount counts consecutive invalid inputs across all phases.
	// It resets whenever a phase handler accepts input.
	ErrorCount int `json:"error_count"`

	// RepeatCount counts how many times the previous response has been
	// emitted consecutively.
	RepeatCount int `json:"-"`

	// Retries tracks per-phase retry counters.
	Retries map[Phase]int `json:"-"`

	// ComplaintDetailed is set once the duration/severity follow-up for
	// the chief complaint has been answered.
	ComplaintDetailed bool `json:"complaint_detailed,omitempty"`

	// Offered options cached between turns of the scheduling phases, so
	// the handlers themselves stay stateless.
	OfferedProviders []CareProvider `json:"offered_providers,omitempty"`
	OfferedSlots     []Slot         `json:"offered_slots,omitempty"`

	Transcript []TranscriptEntry `json:"transcript"`

	lastResponse string
}

// NewState creates the initial conversation state for a call.
func NewState(callID string) *State {
	return &State{
		CallID:    callID,
		Phase:     PhaseGreeting,
		PhaseName: PhaseGreeting.String(),
		StartedAt: time.Now().UTC(),
		Retries:   make(map[Phase]int),
	}
}

// AddTranscript appends one line to the ordered transcript log.
func (s *State) AddTranscript(speaker, text string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Timestamp: time.Now().UTC(),
		Speaker:   speaker,
		Text:      text,
	})
}

// Advance moves the state to the target phase. Moves that would regress
// are ignored, keeping the ordering invariant intact.
func (s *State) Advance(to Phase) bool {
	if to < s.Phase {
		return false
	}
	s.Phase = to
	s.PhaseName = to.String()
	return true
}

// Retry increments and returns the retry counter for the current phase.
func (s *State) Retry() int {
	s.Retries[s.Phase]++
	return s.Retries[s.Phase]
}

// ResetRetries clears the retry counter for the current phase.
// Called on every successful sub-step so the budget applies per question.
func (s *State) ResetRetries() {
	delete(s.Retries, s.Phase)
}
