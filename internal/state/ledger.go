package state

import (
	"fmt"
	"time"
)

// pendingNote is a notification queued under the lock and delivered after
// release
type pendingNote struct {
	title string
	body  string
}

// RecordUsage applies a usage report to the provider's current window.
// The reset check runs first, so a report arriving at or past the window
// boundary lands in the fresh window. Reset-window expiry is evaluated only
// here and in ManualReset; there is no background ticker, and a provider
// that receives no reports past its reset time keeps its stale counters
// until the next mutating call.
func (m *Manager) RecordUsage(providerID string, count int) (UsageState, error) {
	m.mu.Lock()
	p, ok := m.state.Providers[providerID]
	if !ok {
		m.mu.Unlock()
		return UsageState{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	now := m.now()
	var pending []pendingNote

	if now.Unix() >= p.Usage.ResetTime {
		m.archiveAndResetLocked(p, now)
		pending = append(pending, pendingNote{
			title: "🔄 Quota reset",
			body:  fmt.Sprintf("Your quota of %d requests for %s is available again.", p.Config.Limit, p.Config.DisplayName),
		})
	}

	p.Usage.Used += count
	if p.Usage.Used > p.Usage.Limit {
		p.Usage.Used = p.Usage.Limit
	}
	if p.Usage.Used < 0 {
		p.Usage.Used = 0
	}
	p.Usage.Percent = percentOf(p.Usage.Used, p.Usage.Limit)

	// Each threshold fires at most once per window; a large jump may cross
	// several at once and all of them fire in this call.
	for _, threshold := range p.Config.AlertThresholds {
		if p.Usage.Percent < threshold || p.notified[threshold] {
			continue
		}
		p.notified[threshold] = true

		if threshold >= 100 {
			pending = append(pending, pendingNote{
				title: fmt.Sprintf("⚠️ %s quota limit reached!", p.Config.DisplayName),
				body:  "You have used 100% of your quota. It resets at the end of the current window.",
			})
		} else {
			pending = append(pending, pendingNote{
				title: fmt.Sprintf("⚡ %d%% of %s quota", threshold, p.Config.DisplayName),
				body:  fmt.Sprintf("You have used %d of %d requests.", p.Usage.Used, p.Usage.Limit),
			})
		}
	}

	m.saveLocked()
	usage := cloneUsage(p.Usage)
	m.mu.Unlock()

	for _, n := range pending {
		m.notifier.Send(n.title, n.body)
	}
	m.emitUsage(providerID, usage)
	return usage, nil
}

// ManualReset archives the current window and starts a new one relative to
// now, regardless of whether the window had elapsed
func (m *Manager) ManualReset(providerID string) (UsageState, error) {
	m.mu.Lock()
	p, ok := m.state.Providers[providerID]
	if !ok {
		m.mu.Unlock()
		return UsageState{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	m.archiveAndResetLocked(p, m.now())
	m.saveLocked()
	usage := cloneUsage(p.Usage)
	m.mu.Unlock()

	m.emitUsage(providerID, usage)
	return usage, nil
}

// Configure updates a provider's configuration. A supplied non-empty API
// key goes through the secret store before being reflected in the config;
// a secret failure aborts with the aggregate unmodified.
func (m *Manager) Configure(providerID string, update ProviderUpdate) (ProviderConfig, error) {
	m.mu.Lock()
	p, ok := m.state.Providers[providerID]
	if !ok {
		m.mu.Unlock()
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	if update.Limit != nil && *update.Limit <= 0 {
		m.mu.Unlock()
		return ProviderConfig{}, fmt.Errorf("limit must be positive, got %d", *update.Limit)
	}
	if update.ResetIntervalHours != nil && *update.ResetIntervalHours <= 0 {
		m.mu.Unlock()
		return ProviderConfig{}, fmt.Errorf("reset interval must be positive, got %d", *update.ResetIntervalHours)
	}

	if update.APIKey != nil && *update.APIKey != "" {
		if err := m.secrets.Set(apiKeySecretKey(providerID), *update.APIKey); err != nil {
			m.mu.Unlock()
			return ProviderConfig{}, fmt.Errorf("credential store failure: %w", err)
		}
		p.Config.HasAPIKey = true
	}

	if update.DisplayName != nil {
		p.Config.DisplayName = *update.DisplayName
	}
	if update.Enabled != nil {
		p.Config.Enabled = *update.Enabled
	}
	if update.AlertThresholds != nil {
		p.Config.AlertThresholds = append([]int(nil), update.AlertThresholds...)
	}
	if update.ResetIntervalHours != nil {
		p.Config.ResetIntervalHours = *update.ResetIntervalHours
	}
	if update.Limit != nil {
		p.Config.Limit = *update.Limit
		p.Usage.Limit = *update.Limit
		// Usage count is kept; the invariant used <= limit still holds
		if p.Usage.Used > p.Usage.Limit {
			p.Usage.Used = p.Usage.Limit
		}
		p.Usage.Percent = percentOf(p.Usage.Used, p.Usage.Limit)
	}

	m.saveLocked()
	cfg := cloneConfig(p.Config)
	usage := cloneUsage(p.Usage)
	isActive := m.state.ActiveProvider == providerID
	m.mu.Unlock()

	if isActive {
		m.emitUsage(providerID, usage)
	}
	return cfg, nil
}

// archiveAndResetLocked pushes the current (used, limit) pair onto the
// history, zeroes the counter, advances the reset time from now and clears
// the notified thresholds
func (m *Manager) archiveAndResetLocked(p *ProviderState, now time.Time) {
	entry := HistoryEntry{
		Time:  now.Local().Format("15:04"),
		Used:  p.Usage.Used,
		Limit: p.Usage.Limit,
	}
	p.Usage.History = append([]HistoryEntry{entry}, p.Usage.History...)
	if len(p.Usage.History) > historyCap {
		p.Usage.History = p.Usage.History[:historyCap]
	}

	p.Usage.Used = 0
	p.Usage.Percent = 0
	p.Usage.ResetTime = now.Unix() + int64(p.Config.ResetIntervalHours)*3600
	p.notified = make(map[int]bool)
}
