// Package state owns the aggregate application state (provider
// configurations, usage counters and app settings) behind a single
// exclusive lock, and persists it as one JSON document with all secret
// fields excluded.
package state

import "time"

// ProviderKind selects how usage figures are obtained for a provider
type ProviderKind string

const (
	KindManual ProviderKind = "manual" // usage reported by the user
	KindClaude ProviderKind = "claude" // OAuth usage-window endpoint
	KindOpenAI ProviderKind = "openai" // API-key cost/usage endpoints
)

// ProviderConfig is the per-provider configuration. The API key itself
// lives in the secret store; only its presence is recorded here.
type ProviderConfig struct {
	ID                 string       `json:"id"`
	Kind               ProviderKind `json:"kind"`
	DisplayName        string       `json:"displayName"`
	Enabled            bool         `json:"enabled"`
	HasAPIKey          bool         `json:"hasApiKey"`
	Limit              int          `json:"limit"`
	AlertThresholds    []int        `json:"alertThresholds"` // percent, fired in configured order
	ResetIntervalHours int          `json:"resetIntervalHours"`
}

// HistoryEntry archives one completed window's consumption
type HistoryEntry struct {
	Time  string `json:"time"` // HH:MM local, newest first
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

// UsageState is the live usage picture for one provider
type UsageState struct {
	Used      int            `json:"used"`
	Limit     int            `json:"limit"`
	Percent   int            `json:"percent"`
	ResetTime int64          `json:"resetTime"` // unix seconds
	History   []HistoryEntry `json:"history"`
}

// ProviderState pairs a provider's configuration with its usage. The
// notified-thresholds set is deliberately not serialized: it belongs to the
// current reset window only.
type ProviderState struct {
	Config ProviderConfig `json:"config"`
	Usage  UsageState     `json:"usage"`

	notified map[int]bool
}

// Settings are the app-level settings carried in the aggregate
type Settings struct {
	CustomCredentialsPath string `json:"customCredentialsPath,omitempty"`
}

// AppState is the single aggregate guarded by the Manager's lock and
// serialized as one document
type AppState struct {
	Providers      map[string]*ProviderState `json:"providers"`
	ActiveProvider string                    `json:"activeProvider"`
	Settings       Settings                  `json:"settings"`
}

// ProviderUpdate carries a partial configuration change; nil fields are
// left untouched
type ProviderUpdate struct {
	DisplayName        *string `json:"displayName"`
	Enabled            *bool   `json:"enabled"`
	Limit              *int    `json:"limit"`
	AlertThresholds    []int   `json:"alertThresholds"`
	ResetIntervalHours *int    `json:"resetIntervalHours"`
	APIKey             *string `json:"apiKey"`
}

// Defaults carried over from the original tracker
const (
	DefaultLimit              = 100
	DefaultResetIntervalHours = 4
	historyCap                = 6
)

// DefaultThresholds returns the default alert thresholds
func DefaultThresholds() []int {
	return []int{70, 90, 100}
}

// newUsageState returns a fresh usage window starting now
func newUsageState(limit, resetIntervalHours int, now time.Time) UsageState {
	return UsageState{
		Used:      0,
		Limit:     limit,
		Percent:   0,
		ResetTime: now.Unix() + int64(resetIntervalHours)*3600,
		History:   []HistoryEntry{},
	}
}

// cloneUsage returns a deep copy safe to hand outside the lock
func cloneUsage(u UsageState) UsageState {
	out := u
	out.History = make([]HistoryEntry, len(u.History))
	copy(out.History, u.History)
	return out
}
