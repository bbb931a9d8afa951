package view

import (
	"testing"
	"time"
)

func TestAlertsExpire(t *testing.T) {
	a := NewAlerts(5 * time.Second)

	current := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return current }

	a.Push("error", "failed to load dashboard")
	a.Push("warning", "intake is degraded")

	if got := len(a.Active()); got != 2 {
		t.Fatalf("expected 2 active alerts, got %d", got)
	}

	current = current.Add(3 * time.Second)
	if got := len(a.Active()); got != 2 {
		t.Errorf("alerts expired too early, got %d", got)
	}

	current = current.Add(3 * time.Second)
	if got := len(a.Active()); got != 0 {
		t.Errorf("expected all alerts expired, got %d", got)
	}
}

func TestAlertsActiveReturnsCopy(t *testing.T) {
	a := NewAlerts(time.Minute)
	a.Push("info", "original")

	alerts := a.Active()
	alerts[0].Message = "mutated"

	if a.Active()[0].Message != "original" {
		t.Error("mutating the returned slice must not affect stored alerts")
	}
}

func TestAlertsDefaultTTL(t *testing.T) {
	a := NewAlerts(0)
	if a.ttl != DefaultAlertTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultAlertTTL, a.ttl)
	}
}
