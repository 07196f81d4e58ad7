// Package directory supplies the schedulable provider roster and their
// open appointment slots. The static implementation covers deployments
// without a practice-management integration; it matches providers to
// the caller's complaint by specialty keywords and fabricates a
// next-business-days slot grid.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// Entry is one provider in the roster, with the complaint keywords that
// route callers to them.
type Entry struct {
	Provider dialog.CareProvider
	Keywords []string
}

// Static is an in-process dialog.ProviderSource.
type Static struct {
	roster []Entry
	now    func() time.Time
}

// Option configures a Static directory.
type Option func(*Static)

// WithRoster replaces the default provider roster.
func WithRoster(roster []Entry) Option {
	return func(s *Static) { s.roster = roster }
}

// WithNow overrides the clock used for slot generation.
func WithNow(now func() time.Time) Option {
	return func(s *Static) { s.now = now }
}

// NewStatic creates a directory with the default primary-care roster.
func NewStatic(opts ...Option) *Static {
	s := &Static{
		roster: defaultRoster(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultRoster() []Entry {
	return []Entry{
		{
			Provider: dialog.CareProvider{ID: "prov-smith", Name: "Sarah Smith", Specialty: "Primary Care"},
		},
		{
			Provider: dialog.CareProvider{ID: "prov-garcia", Name: "Maria Garcia", Specialty: "Internal Medicine"},
			Keywords: []string{"blood pressure", "diabetes", "chronic"},
		},
		{
			Provider: dialog.CareProvider{ID: "prov-chen", Name: "David Chen", Specialty: "Orthopedics"},
			Keywords: []string{"back", "knee", "shoulder", "joint", "sprain", "fracture"},
		},
		{
			Provider: dialog.CareProvider{ID: "prov-patel", Name: "Anita Patel", Specialty: "Dermatology"},
			Keywords: []string{"skin", "rash", "mole", "acne"},
		},
	}
}

// Providers returns providers ranked by relevance to the complaint.
// Providers without keywords always qualify, so the roster never comes
// back empty for an unmatched complaint.
func (s *Static) Providers(ctx context.Context, complaint, payer string) ([]dialog.CareProvider, error) {
	lower := strings.ToLower(complaint)

	type ranked struct {
		provider dialog.CareProvider
		score    int
		order    int
	}
	var out []ranked
	for i, e := range s.roster {
		score := 0
		for _, kw := range e.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 || len(e.Keywords) == 0 {
			out = append(out, ranked{provider: e.Provider, score: score, order: i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	providers := make([]dialog.CareProvider, len(out))
	for i, r := range out {
		providers[i] = r.provider
	}
	return providers, nil
}

// Slots returns the open slots for a provider: morning and afternoon
// across the next three business days.
func (s *Static) Slots(ctx context.Context, providerID string) ([]dialog.Slot, error) {
	var slots []dialog.Slot
	day := nextBusinessDay(s.now())
	for len(slots) < 6 {
		morning := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, day.Location())
		afternoon := time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, day.Location())

		slots = append(slots,
			dialog.Slot{
				At:       morning,
				Display:  fmt.Sprintf("%s at 10:00 AM", morning.Format("Monday, January 2")),
				Keywords: []string{"morning", strings.ToLower(morning.Weekday().String())},
			},
			dialog.Slot{
				At:       afternoon,
				Display:  fmt.Sprintf("%s at 2:00 PM", afternoon.Format("Monday, January 2")),
				Keywords: []string{"afternoon", strings.ToLower(afternoon.Weekday().String())},
			},
		)
		day = nextBusinessDay(day)
	}
	return slots, nil
}

// nextBusinessDay returns the first weekday strictly after t's date
// when t falls on a weekend, otherwise the day after t.
func nextBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

var _ dialog.ProviderSource = (*Static)(nil)
