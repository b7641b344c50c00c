package testutil

import (
	"context"
	"testing"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewStore_Usable(t *testing.T) {
	s := NewStore(t, nil)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
	if err := s.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
	if got := Count(t, s, "clients"); got != 0 {
		t.Errorf("clients count = %d, want 0", got)
	}
}

func TestFixtures_Seed(t *testing.T) {
	s := NewStore(t, nil)
	clientID := SeedClient(t, s, "Acme Corp")
	caseID := SeedCase(t, s, clientID, "Acme v. Doe")
	SeedDocument(t, s, &caseID, "complaint.pdf")

	if got := Count(t, s, "cases"); got != 1 {
		t.Errorf("cases count = %d, want 1", got)
	}
	if got := Count(t, s, "documents"); got != 1 {
		t.Errorf("documents count = %d, want 1", got)
	}
}

func TestRecordingBus_RecordsEvents(t *testing.T) {
	bus := NewRecordingBus()

	bus.Publish(context.Background(), event.Event{Topic: "test.topic", Source: "test"})
	bus.Publish(context.Background(), event.Event{Topic: "test.other", Source: "test"})

	events := bus.Events()
	if len(events) != 2 {
		t.Fatalf("Events len = %d, want 2", len(events))
	}
	if events[0].Topic != "test.topic" {
		t.Errorf("events[0].Topic = %q, want test.topic", events[0].Topic)
	}

	bus.Reset()
	if len(bus.Events()) != 0 {
		t.Error("Reset did not clear events")
	}
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()
	start := c.Now()
	c.Advance(90)
	if !c.Now().After(start) {
		t.Error("Advance did not move the clock forward")
	}
}
