package llm

import (
	"log/slog"
	"sync"
	"time"

	"fincrew/internal/domain"
)

// Cooldown periods before a penalized provider becomes eligible again.
const (
	downCooldown  = 60 * time.Second
	quotaCooldown = 24 * time.Hour
)

type healthEntry struct {
	state     domain.ProviderState
	resetTime time.Time
}

// HealthTracker tracks per-provider availability state for failover routing.
// Providers are tried in registration order. A provider marked Down or
// QuotaExhausted is skipped until its reset time passes; the promotion back
// to Active happens lazily on read, there is no background timer.
type HealthTracker struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*healthEntry
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthTracker creates a tracker with all providers Active. The names
// slice fixes the failover preference order.
func NewHealthTracker(names []string, logger *slog.Logger) *HealthTracker {
	entries := make(map[string]*healthEntry, len(names))
	order := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := entries[name]; ok {
			continue
		}
		entries[name] = &healthEntry{state: domain.ProviderActive}
		order = append(order, name)
	}
	return &HealthTracker{
		order:   order,
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}
}

// Select returns the first Active provider in registration order, promoting
// any expired penalties first. ok is false when every provider is penalized.
func (t *HealthTracker) Select() (name string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range t.order {
		if t.refreshLocked(n) == domain.ProviderActive {
			return n, true
		}
	}
	return "", false
}

// Probe reports whether the named provider is currently Active, promoting an
// expired penalty first. Unknown names report false.
func (t *HealthTracker) Probe(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[name]; !ok {
		return false
	}
	return t.refreshLocked(name) == domain.ProviderActive
}

// MarkDown penalizes a provider for the short outage cooldown.
func (t *HealthTracker) MarkDown(name string) {
	t.mark(name, domain.ProviderDown, downCooldown)
}

// MarkQuotaExhausted penalizes a provider for the long quota cooldown.
func (t *HealthTracker) MarkQuotaExhausted(name string) {
	t.mark(name, domain.ProviderQuotaExhausted, quotaCooldown)
}

func (t *HealthTracker) mark(name string, state domain.ProviderState, cooldown time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name]
	if !ok {
		return
	}
	e.state = state
	e.resetTime = t.now().Add(cooldown)
	t.logger.Warn("provider penalized",
		"provider", name,
		"state", string(state),
		"reset_time", e.resetTime,
	)
}

// Snapshot returns the current health of every provider in registration
// order, after promoting expired penalties.
func (t *HealthTracker) Snapshot() []domain.ProviderHealth {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.ProviderHealth, 0, len(t.order))
	for _, n := range t.order {
		state := t.refreshLocked(n)
		h := domain.ProviderHealth{Name: n, State: state}
		if state != domain.ProviderActive {
			h.ResetTime = t.entries[n].resetTime
		}
		out = append(out, h)
	}
	return out
}

// refreshLocked promotes an expired penalty back to Active and returns the
// current state. The penalty holds through the reset instant itself; only a
// read strictly after it promotes. Caller must hold t.mu.
func (t *HealthTracker) refreshLocked(name string) domain.ProviderState {
	e := t.entries[name]
	if e.state != domain.ProviderActive && t.now().After(e.resetTime) {
		e.state = domain.ProviderActive
		e.resetTime = time.Time{}
		t.logger.Info("provider restored", "provider", name)
	}
	return e.state
}
