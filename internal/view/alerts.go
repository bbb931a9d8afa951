package view

import (
	"sync"
	"time"
)

// DefaultAlertTTL is how long a transient alert stays visible.
const DefaultAlertTTL = 5 * time.Second

// Alert is a transient user-visible notice, auto-dismissed after the TTL.
type Alert struct {
	Message string    `json:"message"`
	Level   string    `json:"level"`
	Expires time.Time `json:"expires"`
}

// Alerts holds the currently visible transient alerts.
type Alerts struct {
	items []Alert
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

// NewAlerts creates an alert surface with the given TTL. A TTL of zero
// or less falls back to the default.
func NewAlerts(ttl time.Duration) *Alerts {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	return &Alerts{
		ttl: ttl,
		now: time.Now,
	}
}

// Push adds a transient alert.
func (a *Alerts) Push(level, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = append(a.items, Alert{
		Message: message,
		Level:   level,
		Expires: a.now().Add(a.ttl),
	})
}

// Active returns the alerts that have not yet expired, pruning the rest.
func (a *Alerts) Active() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	live := a.items[:0]
	for _, alert := range a.items {
		if alert.Expires.After(now) {
			live = append(live, alert)
		}
	}
	a.items = live

	out := make([]Alert, len(a.items))
	copy(out, a.items)
	return out
}
