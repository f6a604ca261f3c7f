// Package failover tracks which model is currently active for a logical
// role (classifier, replanner, remote locator) and switches to a configured
// fallback chain when the primary is rate-limited, probing the primary back
// into rotation once it recovers.
package failover

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/providers"
)

const (
	modeNormal   = "normal"
	modeDegraded = "degraded"
)

type Route struct {
	Model       string
	Provider    providers.LLMProvider
	IsPrimary   bool
	Mode        string
	SwitchEpoch int64
}

type SwitchEvent struct {
	FromModel string
	ToModel   string
	Reason    string
	Switched  bool
}

type ProbeOutcome struct {
	Success       bool
	BecameHealthy bool
	NextProbeAt   time.Time
}

// state is the manager's in-memory bookkeeping. It is not persisted: each
// orchestrator invocation starts a fresh process and a fresh failover state,
// matching the single-task-per-run scheduling model.
type state struct {
	mode                      string
	primaryModel              string
	activeModel               string
	fallbackIndex             int
	degradedAt                time.Time
	holdUntil                 time.Time
	nextProbeAt               time.Time
	consecutiveProbeSuccesses int
	lastSwitchReason          string
	lastRateLimitError        string
	switchEpoch               int64
}

type Manager struct {
	cfg       *config.Config
	mu        sync.Mutex
	s         state
	fallbacks []string
	providers map[string]providers.LLMProvider
}

// NewManager builds a failover manager for one logical model role (e.g. the
// classifier's model path, or the executor's replan/verify calls). primary
// is the configured model for that role; fallbacks come from the shared LLM
// fallback chain.
func NewManager(cfg *config.Config, primary string, fallbackModels []string, fallbackModel string) *Manager {
	fallbacks := normalizeFallbackChain(primary, fallbackModels, fallbackModel)
	return &Manager{
		cfg: cfg,
		s: state{
			mode:          modeNormal,
			primaryModel:  primary,
			activeModel:   primary,
			fallbackIndex: -1,
		},
		fallbacks: fallbacks,
		providers: make(map[string]providers.LLMProvider),
	}
}

func normalizeFallbackChain(primary string, chain []string, single string) []string {
	if len(chain) == 0 && strings.TrimSpace(single) != "" {
		chain = []string{single}
	}
	seen := map[string]bool{}
	result := make([]string, 0, len(chain))
	for _, model := range chain {
		model = strings.TrimSpace(model)
		if model == "" || model == primary || seen[model] {
			continue
		}
		seen[model] = true
		result = append(result, model)
	}
	return result
}

func (m *Manager) Enabled() bool {
	return m.cfg.Failover.Enabled
}

func (m *Manager) ResolveRoute() (Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model := m.s.activeModel
	if model == "" {
		model = m.s.primaryModel
	}
	provider, err := m.providerForModelLocked(model)
	if err != nil {
		return Route{}, err
	}

	return Route{
		Model:       model,
		Provider:    provider,
		IsPrimary:   model == m.s.primaryModel,
		Mode:        m.s.mode,
		SwitchEpoch: m.s.switchEpoch,
	}, nil
}

func (m *Manager) providerForModelLocked(model string) (providers.LLMProvider, error) {
	if p, ok := m.providers[model]; ok {
		return p, nil
	}
	p, err := providers.CreateProviderForModel(m.cfg, model)
	if err != nil {
		return nil, err
	}
	m.providers[model] = p
	return p, nil
}

// SetProviderForModel lets a caller inject a pre-built or test-double
// provider instead of going through CreateProviderForModel.
func (m *Manager) SetProviderForModel(model string, provider providers.LLMProvider) {
	if model == "" || provider == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[model] = provider
}

func (m *Manager) OnLLMRateLimited(model string, err error) SwitchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled() {
		return SwitchEvent{Switched: false}
	}

	if err != nil {
		m.s.lastRateLimitError = err.Error()
	}

	from := m.s.activeModel
	if from == "" {
		from = m.s.primaryModel
	}

	if len(m.fallbacks) == 0 {
		m.s.lastSwitchReason = "rate_limited_no_fallback"
		return SwitchEvent{FromModel: from, ToModel: from, Reason: "no_fallback_configured", Switched: false}
	}

	now := time.Now()
	holdUntil := now.Add(time.Duration(maxInt(m.cfg.Failover.HoldMinutes, 1)) * time.Minute)
	if rl, ok := err.(*providers.RateLimitError); ok {
		if hinted := nextProbeFromRateLimitHints(now, rl); hinted.After(holdUntil) {
			holdUntil = hinted
		}
	}

	var to string
	if from == m.s.primaryModel {
		m.s.fallbackIndex = 0
		to = m.fallbacks[0]
	} else {
		next := m.s.fallbackIndex + 1
		if next < 0 {
			next = 0
		}
		if next >= len(m.fallbacks) {
			m.s.lastSwitchReason = "rate_limited_fallback_exhausted"
			return SwitchEvent{FromModel: from, ToModel: from, Reason: "fallback_exhausted", Switched: false}
		}
		m.s.fallbackIndex = next
		to = m.fallbacks[next]
	}

	m.s.mode = modeDegraded
	m.s.activeModel = to
	m.s.degradedAt = now
	m.s.holdUntil = holdUntil
	m.s.nextProbeAt = holdUntil
	m.s.consecutiveProbeSuccesses = 0
	m.s.lastSwitchReason = "rate_limited"
	m.s.switchEpoch++

	return SwitchEvent{FromModel: from, ToModel: to, Reason: "rate_limited", Switched: true}
}

func (m *Manager) OnLLMSuccess(model string) {
	if !m.Enabled() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.activeModel == "" {
		m.s.activeModel = model
	}
}

func (m *Manager) ShouldProbe(now time.Time) bool {
	if !m.Enabled() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.s.activeModel == "" || m.s.activeModel == m.s.primaryModel {
		return false
	}
	if now.Before(m.s.holdUntil) {
		return false
	}
	return m.s.nextProbeAt.IsZero() || !now.Before(m.s.nextProbeAt)
}

func (m *Manager) RunProbe(ctx context.Context) ProbeOutcome {
	m.mu.Lock()
	primary := m.s.primaryModel
	m.mu.Unlock()

	provider, err := providers.CreateProviderForModel(m.cfg, primary)
	if err != nil {
		return m.recordProbeResult(false, err)
	}

	_, err = provider.Chat(ctx,
		[]providers.Message{{Role: "user", Content: "health_check: reply with OK"}},
		nil,
		primary,
		map[string]interface{}{"max_tokens": 8, "temperature": 0.0},
	)
	if err != nil {
		return m.recordProbeResult(false, err)
	}
	return m.recordProbeResult(true, nil)
}

func (m *Manager) recordProbeResult(success bool, err error) ProbeOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	interval := time.Duration(maxInt(m.cfg.Failover.ProbeIntervalMinutes, 1)) * time.Minute
	backoff := time.Duration(maxInt(m.cfg.Failover.ProbeFailureBackoffMinutes, 1)) * time.Minute
	hold := time.Duration(maxInt(m.cfg.Failover.HoldMinutes, 1)) * time.Minute
	threshold := maxInt(m.cfg.Failover.ProbeSuccessThreshold, 1)

	if success {
		m.s.consecutiveProbeSuccesses++
		m.s.nextProbeAt = now.Add(interval)
		becameHealthy := m.s.consecutiveProbeSuccesses >= threshold
		if becameHealthy && !m.cfg.Failover.SwitchbackRequiresApproval {
			m.s.mode = modeNormal
			m.s.activeModel = m.s.primaryModel
			m.s.fallbackIndex = -1
			m.s.consecutiveProbeSuccesses = 0
			m.s.lastSwitchReason = "auto_switchback_healthy"
			m.s.switchEpoch++
		}
		return ProbeOutcome{Success: true, BecameHealthy: becameHealthy, NextProbeAt: m.s.nextProbeAt}
	}

	m.s.consecutiveProbeSuccesses = 0
	m.s.mode = modeDegraded
	m.s.nextProbeAt = now.Add(backoff)
	if rl, ok := err.(*providers.RateLimitError); ok {
		next := now.Add(hold)
		if hinted := nextProbeFromRateLimitHints(now, rl); hinted.After(next) {
			next = hinted
		}
		m.s.holdUntil = next
		m.s.nextProbeAt = next
	}
	return ProbeOutcome{Success: false, NextProbeAt: m.s.nextProbeAt}
}

func nextProbeFromRateLimitHints(now time.Time, rl *providers.RateLimitError) time.Time {
	if rl == nil {
		return time.Time{}
	}
	var candidates []time.Time
	for _, raw := range []string{rl.RetryAfter, rl.RateLimitRequestsReset, rl.RateLimitTokensReset} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if secs, err := strconv.Atoi(raw); err == nil {
			if strings.EqualFold(raw, rl.RetryAfter) {
				candidates = append(candidates, now.Add(time.Duration(secs)*time.Second))
			} else {
				candidates = append(candidates, time.Unix(int64(secs), 0))
			}
			continue
		}
		if t, err := httpDateOrRFC3339(raw); err == nil {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return time.Time{}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	return candidates[len(candidates)-1]
}

func httpDateOrRFC3339(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (m *Manager) IsUsingPrimary() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.activeModel == "" {
		return true
	}
	return m.s.activeModel == m.s.primaryModel
}

func (m *Manager) PrimaryModel() string {
	return m.s.primaryModel
}

func (m *Manager) ActiveModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.activeModel == "" {
		return m.s.primaryModel
	}
	return m.s.activeModel
}

func (m *Manager) LastSwitchReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.lastSwitchReason
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
