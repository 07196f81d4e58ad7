package dialog

// Phase is a step in the fixed intake conversation ordering.
// Phases only ever advance or repeat; they never regress.
type Phase int

const (
	PhaseGreeting Phase = iota
	PhaseInsurance
	PhaseChiefComplaint
	PhaseDemographics
	PhaseContactInfo
	PhaseProviderSelection
	PhaseScheduling
	PhaseConfirmation
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseGreeting:          "greeting",
	PhaseInsurance:         "insurance",
	PhaseChiefComplaint:    "chief_complaint",
	PhaseDemographics:      "demographics",
	PhaseContactInfo:       "contact_info",
	PhaseProviderSelection: "provider_selection",
	PhaseScheduling:        "appointment_scheduling",
	PhaseConfirmation:      "confirmation",
	PhaseCompleted:         "completed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal returns true for the final phase of a call.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}

// Next returns the phase that follows p in the fixed ordering.
// Completed has no successor and returns itself.
func (p Phase) Next() Phase {
	if p >= PhaseCompleted {
		return PhaseCompleted
	}
	return p + 1
}

// ParsePhase maps a phase name back to its value.
// Used when rehydrating persisted state.
func ParsePhase(name string) (Phase, bool) {
	for p, n := range phaseNames {
		if n == name {
			return p, true
		}
	}
	return PhaseGreeting, false
}
