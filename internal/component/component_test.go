package component

import (
	"context"
	"errors"
	"testing"
)

type stubComponent struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (s *stubComponent) Name() string { return s.name }

func (s *stubComponent) Start(_ context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	return s.startErr
}

func (s *stubComponent) Stop(_ context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return s.stopErr
}

func (s *stubComponent) Health(_ context.Context) Health {
	return Health{Name: s.name, Status: StatusHealthy}
}

func TestRegistry_StartStopOrder(t *testing.T) {
	var events []string
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(&stubComponent{name: name, events: &events}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], events[i])
		}
	}
}

func TestRegistry_StartAllStopsOnFailure(t *testing.T) {
	var events []string
	r := NewRegistry()
	r.Register(&stubComponent{name: "ok", events: &events})
	r.Register(&stubComponent{name: "bad", startErr: errors.New("bind failed"), events: &events})
	r.Register(&stubComponent{name: "never", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	for _, e := range events {
		if e == "start:never" {
			t.Error("components after a failure must not start")
		}
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	var events []string
	r := NewRegistry()
	if err := r.Register(&stubComponent{name: "dup", events: &events}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&stubComponent{name: "dup", events: &events}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegistry_StopAllSkipsUnstarted(t *testing.T) {
	var events []string
	r := NewRegistry()
	r.Register(&stubComponent{name: "a", events: &events})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestRegistry_Get(t *testing.T) {
	var events []string
	r := NewRegistry()
	c := &stubComponent{name: "a", events: &events}
	r.Register(c)

	if got := r.Get("a"); got != c {
		t.Error("expected registered component")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("expected nil for unknown name")
	}
}
