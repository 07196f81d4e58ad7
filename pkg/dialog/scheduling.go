package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxOffered = 3

var clockTimeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?\b`)

var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// schedulingHandler serves both the provider-selection and the
// appointment-scheduling phases. Offered options are cached in State so
// the handler itself carries nothing between turns.
type schedulingHandler struct {
	source  ProviderSource
	chooser Chooser
	now     func() time.Time
}

func (h *schedulingHandler) Process(ctx context.Context, input string, st *State) (Result, error) {
	if st.Phase == PhaseProviderSelection {
		return h.providerStep(ctx, input, st)
	}
	return h.slotStep(ctx, input, st)
}

func (h *schedulingHandler) providerStep(ctx context.Context, input string, st *State) (Result, error) {
	// First turn in this phase: fetch and present the options.
	if len(st.OfferedProviders) == 0 {
		payer := ""
		if st.Patient.Insurance != nil {
			payer = st.Patient.Insurance.PayerName
		}
		providers, err := h.source.Providers(ctx, st.Patient.ChiefComplaint, payer)
		if err != nil || len(providers) == 0 {
			providers = []CareProvider{{ID: "default-1", Name: "Sarah Smith", Specialty: "Primary Care"}}
		}
		if len(providers) > maxOffered {
			providers = providers[:maxOffered]
		}
		st.OfferedProviders = providers

		options := make([]string, len(providers))
		for i, p := range providers {
			options[i] = fmt.Sprintf("%d. Dr. %s - %s", i+1, p.Name, p.Specialty)
		}
		return Result{
			Response: fmt.Sprintf("Based on your needs, I have these doctors available: %s. Which doctor would you like?", strings.Join(options, ", ")),
			Next:     PhaseProviderSelection,
			Accepted: true,
		}, nil
	}

	selected := h.pickProvider(ctx, input, st.OfferedProviders)

	st.Patient.Provider = "Dr. " + selected.Name
	st.ResetRetries()

	slots, err := h.source.Slots(ctx, selected.ID)
	if err != nil || len(slots) == 0 {
		slots = []Slot{h.defaultSlot()}
	}
	if len(slots) > maxOffered {
		slots = slots[:maxOffered]
	}
	st.OfferedSlots = slots

	options := make([]string, len(slots))
	for i, s := range slots {
		options[i] = fmt.Sprintf("%d. %s", i+1, s.Display)
	}
	return Result{
		Response: fmt.Sprintf("Dr. %s has these appointments available: %s. Which time works best for you?", selected.Name, strings.Join(options, ", ")),
		Next:     PhaseScheduling,
		Accepted: true,
	}, nil
}

func (h *schedulingHandler) slotStep(ctx context.Context, input string, st *State) (Result, error) {
	if len(st.OfferedSlots) == 0 {
		st.OfferedSlots = []Slot{h.defaultSlot()}
	}

	slot := h.pickSlot(ctx, input, st.OfferedSlots)

	st.Patient.AppointmentAt = slot.At
	st.ResetRetries()
	return Result{
		Response: fmt.Sprintf("Perfect! I've scheduled your appointment with %s for %s. You'll receive a confirmation shortly.", st.Patient.Provider, slot.Display),
		Next:     PhaseConfirmation,
		Accepted: true,
	}, nil
}

// pickProvider resolves the caller's choice by number, by name, via the
// classifier, and finally by defaulting to the first option. It never
// fails: an ambiguous answer costs the caller nothing.
func (h *schedulingHandler) pickProvider(ctx context.Context, input string, offered []CareProvider) CareProvider {
	if n, ok := SpokenNumber(input); ok && n >= 1 && n <= len(offered) {
		return offered[n-1]
	}

	lower := strings.ToLower(input)
	for _, p := range offered {
		name := strings.ToLower(p.Name)
		if strings.Contains(lower, name) {
			return p
		}
		// Callers usually say just the surname.
		if parts := strings.Fields(name); len(parts) > 0 && containsWord(lower, parts[len(parts)-1]) {
			return p
		}
	}

	if h.chooser != nil {
		options := make([]string, len(offered))
		for i, p := range offered {
			options[i] = fmt.Sprintf("Dr. %s - %s", p.Name, p.Specialty)
		}
		if idx, err := h.chooser.ClassifyChoice(ctx, input, options); err == nil && idx >= 0 && idx < len(offered) {
			return offered[idx]
		}
	}

	return offered[0]
}

func (h *schedulingHandler) pickSlot(ctx context.Context, input string, offered []Slot) Slot {
	if n, ok := SpokenNumber(input); ok && n >= 1 && n <= len(offered) {
		return offered[n-1]
	}

	if slot, ok := h.matchTimeExpression(input, offered); ok {
		return slot
	}

	lower := strings.ToLower(input)
	for _, s := range offered {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				return s
			}
		}
	}

	if h.chooser != nil {
		options := make([]string, len(offered))
		for i, s := range offered {
			options[i] = s.Display
		}
		if idx, err := h.chooser.ClassifyChoice(ctx, input, options); err == nil && idx >= 0 && idx < len(offered) {
			return offered[idx]
		}
	}

	return offered[0]
}

// matchTimeExpression parses an explicit time ("2 pm", "ten thirty") and
// optional day word ("tomorrow", "friday") and returns the closest
// offered slot. Without an am/pm marker both interpretations compete.
func (h *schedulingHandler) matchTimeExpression(input string, offered []Slot) (Slot, bool) {
	lower := strings.ToLower(input)

	m := clockTimeRe.FindStringSubmatch(lower)
	if m == nil {
		return Slot{}, false
	}

	hour := atoiSafe(m[1])
	minute := atoiSafe(m[2])
	meridiem := strings.ReplaceAll(m[3], ".", "")
	if hour < 1 || hour > 12 || minute > 59 {
		return Slot{}, false
	}

	base := h.now()
	if len(offered) > 0 {
		base = offered[0].At
	}
	base = applyDayWord(base, lower)

	var candidates []time.Time
	switch meridiem {
	case "am":
		candidates = []time.Time{at(base, hour%12, minute)}
	case "pm":
		candidates = []time.Time{at(base, hour%12+12, minute)}
	default:
		candidates = []time.Time{at(base, hour%12, minute), at(base, hour%12+12, minute)}
	}

	var best Slot
	bestDelta := time.Duration(-1)
	for _, cand := range candidates {
		for _, s := range offered {
			delta := s.At.Sub(cand)
			if delta < 0 {
				delta = -delta
			}
			if bestDelta < 0 || delta < bestDelta {
				best = s
				bestDelta = delta
			}
		}
	}
	if bestDelta < 0 {
		return Slot{}, false
	}
	return best, true
}

func (h *schedulingHandler) defaultSlot() Slot {
	next := h.now().AddDate(0, 0, 1)
	proposed := time.Date(next.Year(), next.Month(), next.Day(), 14, 0, 0, 0, next.Location())
	return Slot{
		At:       proposed,
		Display:  proposed.Format("Monday, January 2 at 3:04 PM"),
		Keywords: []string{"2 pm", "tomorrow", strings.ToLower(proposed.Weekday().String())},
	}
}

func applyDayWord(base time.Time, lower string) time.Time {
	if strings.Contains(lower, "today") {
		return base
	}
	if strings.Contains(lower, "tomorrow") {
		return base.AddDate(0, 0, 1)
	}
	for i, day := range weekdayNames {
		if strings.Contains(lower, day) {
			// time.Weekday is Sunday-based; weekdayNames is Monday-based.
			target := time.Weekday((i + 1) % 7)
			delta := (int(target) - int(base.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return base.AddDate(0, 0, delta)
		}
	}
	return base
}

func at(base time.Time, hour, minute int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location())
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
