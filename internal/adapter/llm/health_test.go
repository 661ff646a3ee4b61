package llm

import (
	"testing"
	"time"

	"fincrew/internal/domain"
)

func newTestTracker(names ...string) (*HealthTracker, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewHealthTracker(names, newTestLogger())
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestHealthTrackerSelectPrefersFirst(t *testing.T) {
	tr, _ := newTestTracker("groq", "gemini")

	name, ok := tr.Select()
	if !ok || name != "groq" {
		t.Fatalf("Select = %q, %v; want groq, true", name, ok)
	}
}

func TestHealthTrackerSkipsDownProvider(t *testing.T) {
	tr, _ := newTestTracker("groq", "gemini")

	tr.MarkDown("groq")

	name, ok := tr.Select()
	if !ok || name != "gemini" {
		t.Fatalf("Select = %q, %v; want gemini, true", name, ok)
	}
}

func TestHealthTrackerDownRecoversAfterCooldown(t *testing.T) {
	tr, now := newTestTracker("groq", "gemini")

	tr.MarkDown("groq")
	if tr.Probe("groq") {
		t.Fatal("groq should be down immediately after MarkDown")
	}

	*now = now.Add(59 * time.Second)
	if tr.Probe("groq") {
		t.Fatal("groq should still be down before cooldown expires")
	}

	*now = now.Add(1 * time.Second)
	if tr.Probe("groq") {
		t.Fatal("groq should still be down at exactly the reset instant")
	}

	*now = now.Add(1 * time.Second)
	if !tr.Probe("groq") {
		t.Fatal("groq should recover after the 60s cooldown")
	}

	name, _ := tr.Select()
	if name != "groq" {
		t.Errorf("Select = %q, want groq back at front of order", name)
	}
}

func TestHealthTrackerQuotaCooldownIs24h(t *testing.T) {
	tr, now := newTestTracker("groq")

	tr.MarkQuotaExhausted("groq")

	*now = now.Add(24 * time.Hour)
	if tr.Probe("groq") {
		t.Fatal("groq should stay exhausted through the full 24h")
	}

	*now = now.Add(1 * time.Hour)
	if !tr.Probe("groq") {
		t.Fatal("groq should recover after the 24h cooldown")
	}
}

func TestHealthTrackerAllDown(t *testing.T) {
	tr, _ := newTestTracker("groq", "gemini")

	tr.MarkDown("groq")
	tr.MarkQuotaExhausted("gemini")

	if _, ok := tr.Select(); ok {
		t.Fatal("Select should report no available provider")
	}
}

func TestHealthTrackerSnapshot(t *testing.T) {
	tr, now := newTestTracker("groq", "gemini")

	tr.MarkQuotaExhausted("groq")

	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}
	if snap[0].Name != "groq" || snap[0].State != domain.ProviderQuotaExhausted {
		t.Errorf("snap[0] = %+v, want groq QuotaExhausted", snap[0])
	}
	wantReset := now.Add(quotaCooldown)
	if !snap[0].ResetTime.Equal(wantReset) {
		t.Errorf("reset time = %v, want %v", snap[0].ResetTime, wantReset)
	}
	if snap[1].Name != "gemini" || snap[1].State != domain.ProviderActive {
		t.Errorf("snap[1] = %+v, want gemini Active", snap[1])
	}
	if !snap[1].ResetTime.IsZero() {
		t.Errorf("active provider reset time = %v, want zero", snap[1].ResetTime)
	}
}

func TestHealthTrackerProbeUnknown(t *testing.T) {
	tr, _ := newTestTracker("groq")

	if tr.Probe("nope") {
		t.Error("Probe of unknown provider should be false")
	}
}

func TestHealthTrackerMarkOverwritesState(t *testing.T) {
	tr, now := newTestTracker("groq")

	tr.MarkDown("groq")
	tr.MarkQuotaExhausted("groq")

	snap := tr.Snapshot()
	if snap[0].State != domain.ProviderQuotaExhausted {
		t.Errorf("state = %s, want QuotaExhausted after re-mark", snap[0].State)
	}

	*now = now.Add(2 * time.Minute)
	if tr.Probe("groq") {
		t.Error("quota penalty should outlive the 60s down cooldown")
	}
}
