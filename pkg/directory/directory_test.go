package directory

import (
	"context"
	"testing"
	"time"
)

func TestProvidersRankedByComplaint(t *testing.T) {
	d := NewStatic()
	ctx := context.Background()

	got, err := d.Providers(ctx, "my knee has been hurting for a week", "Blue Cross")
	if err != nil {
		t.Fatalf("Providers() error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no providers returned")
	}
	if got[0].Name != "David Chen" {
		t.Errorf("top provider = %q, want David Chen (orthopedics for a knee complaint)", got[0].Name)
	}
}

func TestProvidersUnmatchedComplaint(t *testing.T) {
	d := NewStatic()

	got, err := d.Providers(context.Background(), "just feeling off lately", "")
	if err != nil {
		t.Fatalf("Providers() error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("unmatched complaint should still return generalists")
	}
	if got[0].Name != "Sarah Smith" {
		t.Errorf("top provider = %q, want Sarah Smith (primary care default)", got[0].Name)
	}
}

func TestSlots(t *testing.T) {
	// Friday, so slot generation has to hop the weekend.
	friday := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	d := NewStatic(WithNow(func() time.Time { return friday }))

	slots, err := d.Slots(context.Background(), "prov-smith")
	if err != nil {
		t.Fatalf("Slots() error: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("len(slots) = %d, want 6", len(slots))
	}

	if got := slots[0].At.Weekday(); got != time.Monday {
		t.Errorf("first slot weekday = %v, want Monday", got)
	}
	if got := slots[0].At.Hour(); got != 10 {
		t.Errorf("first slot hour = %d, want 10", got)
	}
	if got := slots[1].At.Hour(); got != 14 {
		t.Errorf("second slot hour = %d, want 14", got)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].At.After(slots[i-1].At) {
			t.Errorf("slots out of order at %d: %v then %v", i, slots[i-1].At, slots[i].At)
		}
	}

	wantKeywords := map[string]bool{"morning": false, "afternoon": false, "monday": false}
	for _, s := range slots {
		for _, kw := range s.Keywords {
			if _, ok := wantKeywords[kw]; ok {
				wantKeywords[kw] = true
			}
		}
	}
	for kw, seen := range wantKeywords {
		if !seen {
			t.Errorf("keyword %q never attached to a slot", kw)
		}
	}
}
