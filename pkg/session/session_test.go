package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/store"
)

func newTestManager(t *testing.T, cfg ManagerConfig) (*Manager, *store.Memory) {
	t.Helper()
	st := store.NewMemory(time.Minute)
	t.Cleanup(func() { st.Close() })
	cfg.Store = st
	m := NewManager(cfg)
	t.Cleanup(m.Close)
	return m, st
}

func TestManagerCreateAndLookup(t *testing.T) {
	m, backing := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	s, err := m.Create(ctx, "call-1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if s.CallID() != "call-1" {
		t.Errorf("CallID() = %q, want call-1", s.CallID())
	}
	if s.State().Phase != dialog.PhaseGreeting {
		t.Errorf("initial phase = %v, want %v", s.State().Phase, dialog.PhaseGreeting)
	}

	got, ok := m.Lookup("call-1")
	if !ok || got != s {
		t.Error("Lookup() did not return the created session")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	if _, err := backing.Get(ctx, "call-1"); err != nil {
		t.Errorf("initial state not persisted: %v", err)
	}
}

func TestManagerDuplicateCall(t *testing.T) {
	m, _ := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	if _, err := m.Create(ctx, "call-1"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := m.Create(ctx, "call-1"); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate Create() error = %v, want store.ErrAlreadyExists", err)
	}
}

func TestTeardownIdempotent(t *testing.T) {
	m, backing := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	s, err := m.Create(ctx, "call-1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	s.State().Advance(dialog.PhaseCompleted)

	m.Teardown("call-1", "completed")
	m.Teardown("call-1", "completed")
	s.Teardown("completed")

	select {
	case <-s.Context().Done():
	default:
		t.Error("session context not canceled after teardown")
	}
	if _, ok := m.Lookup("call-1"); ok {
		t.Error("torn down session still in registry")
	}

	// The final snapshot survives in the store.
	snap, err := backing.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("Get() after teardown error: %v", err)
	}
	if snap.Phase != dialog.PhaseCompleted {
		t.Errorf("persisted phase = %v, want %v", snap.Phase, dialog.PhaseCompleted)
	}
}

func TestIdleReaper(t *testing.T) {
	m, _ := newTestManager(t, ManagerConfig{
		IdleTimeout:  30 * time.Millisecond,
		ReapInterval: 10 * time.Millisecond,
	})
	ctx := context.Background()

	idle, err := m.Create(ctx, "idle-call")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	busy, err := m.Create(ctx, "busy-call")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		busy.Touch()
		if _, ok := m.Lookup("idle-call"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("idle call never reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-idle.Context().Done():
	default:
		t.Error("reaped session context not canceled")
	}
	if _, ok := m.Lookup("busy-call"); !ok {
		t.Error("active call was reaped")
	}
}

func TestManagerClose(t *testing.T) {
	st := store.NewMemory(time.Minute)
	defer st.Close()
	m := NewManager(ManagerConfig{Store: st})

	s, err := m.Create(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	m.Close()

	select {
	case <-s.Context().Done():
	default:
		t.Error("session survived manager close")
	}
	if _, err := m.Create(context.Background(), "call-2"); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Create() after close error = %v, want ErrShuttingDown", err)
	}
}

func TestSessionPersist(t *testing.T) {
	m, backing := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	s, err := m.Create(ctx, "call-1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	s.State().Patient.PhoneNumber = "555-0100"
	if err := s.Persist(ctx); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	snap, err := backing.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if snap.Patient.PhoneNumber != "555-0100" {
		t.Errorf("persisted phone = %q, want 555-0100", snap.Patient.PhoneNumber)
	}
}
