package failover

import (
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Failover.Enabled = true
	cfg.Failover.HoldMinutes = 15
	cfg.Failover.ProbeSuccessThreshold = 2
	cfg.Failover.ProbeIntervalMinutes = 5
	cfg.Failover.ProbeFailureBackoffMinutes = 10

	return NewManager(cfg, "claude-sonnet-4-5-20250929", []string{"gpt-5-mini", "gemini-2.5-flash"}, "")
}

func TestOnLLMRateLimitedSwitchesToFirstFallback(t *testing.T) {
	m := newTestManager(t)
	evt := m.OnLLMRateLimited(m.PrimaryModel(), nil)
	if !evt.Switched {
		t.Fatalf("expected switch event")
	}
	if evt.ToModel != "gpt-5-mini" {
		t.Fatalf("expected first fallback, got %s", evt.ToModel)
	}
}

func TestOnLLMRateLimitedAdvancesFallbackChain(t *testing.T) {
	m := newTestManager(t)
	_ = m.OnLLMRateLimited(m.PrimaryModel(), nil)
	evt := m.OnLLMRateLimited("gpt-5-mini", nil)
	if !evt.Switched {
		t.Fatalf("expected second switch")
	}
	if evt.ToModel != "gemini-2.5-flash" {
		t.Fatalf("expected second fallback, got %s", evt.ToModel)
	}
}

func TestOnLLMRateLimitedExhaustsFallbackChain(t *testing.T) {
	m := newTestManager(t)
	_ = m.OnLLMRateLimited(m.PrimaryModel(), nil)
	_ = m.OnLLMRateLimited("gpt-5-mini", nil)
	evt := m.OnLLMRateLimited("gemini-2.5-flash", nil)
	if evt.Switched {
		t.Fatalf("expected fallback chain to be exhausted")
	}
	if evt.Reason != "fallback_exhausted" {
		t.Fatalf("unexpected reason: %s", evt.Reason)
	}
}

func TestIsUsingPrimaryInitially(t *testing.T) {
	m := newTestManager(t)
	if !m.IsUsingPrimary() {
		t.Fatalf("expected manager to start on primary model")
	}
}

func TestDisabledManagerNeverSwitches(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Failover.Enabled = false
	m := NewManager(cfg, "claude-sonnet-4-5-20250929", []string{"gpt-5-mini"}, "")
	evt := m.OnLLMRateLimited(m.PrimaryModel(), nil)
	if evt.Switched {
		t.Fatalf("disabled manager should never switch")
	}
}
