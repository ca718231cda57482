package model

import (
	"testing"
	"time"
)

func TestSessionModel_AccumulatesAcrossSessions(t *testing.T) {
	m := NewSessionModel()
	base := time.Unix(0, 0)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }

	m.OnTick(true, at(0))
	m.OnTick(true, at(5))
	if s, tot := m.Values(); s != 5*time.Second || tot != 5*time.Second {
		t.Fatalf("running: session=%v total=%v", s, tot)
	}

	m.OnTick(false, at(6))
	m.OnTick(false, at(9))
	if s, tot := m.Values(); s != 6*time.Second || tot != 6*time.Second {
		t.Fatalf("idle ticks must not change durations: session=%v total=%v", s, tot)
	}

	m.OnTick(true, at(10))
	m.OnTick(true, at(13))
	if s, tot := m.Values(); s != 3*time.Second || tot != 9*time.Second {
		t.Fatalf("second session: session=%v total=%v", s, tot)
	}
	m.OnTick(false, at(14))
	if s, tot := m.Values(); s != 4*time.Second || tot != 10*time.Second {
		t.Fatalf("after stop: session=%v total=%v", s, tot)
	}
	if m.Sessions() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Sessions())
	}
}

func TestSessionModel_NilSafe(t *testing.T) {
	var m *SessionModel
	m.OnTick(true, time.Now())
	if s, tot := m.Values(); s != 0 || tot != 0 || m.Sessions() != 0 {
		t.Fatalf("nil model should report zeros")
	}
}
