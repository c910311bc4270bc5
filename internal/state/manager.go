package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/notify"
	"github.com/PopeYeahWine/MeterAI/internal/secretstore"
)

// ErrProviderNotFound is returned when an operation references a provider
// id absent from the aggregate
var ErrProviderNotFound = errors.New("provider not found")

// apiKeySecretKey is the secret store key for a provider's own API key,
// distinct from the internal OAuth vault keys
func apiKeySecretKey(providerID string) string {
	return "provider-apikey:" + providerID
}

// Manager guards the aggregate app state. Every mutating operation locks,
// mutates in memory, persists the whole aggregate, unlocks and then
// notifies collaborators.
type Manager struct {
	mu        sync.Mutex
	stateFile string
	state     AppState
	secrets   secretstore.Store
	notifier  notify.Notifier

	onUsageUpdated func(providerID string, usage UsageState)

	now func() time.Time
}

// NewManager loads (or initializes) the aggregate from dataDir
func NewManager(dataDir string, secrets secretstore.Store, notifier notify.Notifier) (*Manager, error) {
	if notifier == nil {
		notifier = notify.Log{}
	}
	m := &Manager{
		stateFile: filepath.Join(dataDir, "state.json"),
		secrets:   secrets,
		notifier:  notifier,
		now:       time.Now,
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetOnUsageUpdated installs the callback invoked (outside the lock) after
// every usage-changing mutation
func (m *Manager) SetOnUsageUpdated(fn func(providerID string, usage UsageState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUsageUpdated = fn
}

// load reads the persisted aggregate or seeds the default one
func (m *Manager) load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.stateFile)
	if os.IsNotExist(err) {
		m.state = m.defaultState()
		m.saveLocked()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &m.state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	m.reconcileLocked()
	return nil
}

// defaultState seeds a single Claude provider, matching the original
// single-tracker behavior
func (m *Manager) defaultState() AppState {
	now := m.now()
	claude := &ProviderState{
		Config: ProviderConfig{
			ID:                 "claude",
			Kind:               KindClaude,
			DisplayName:        "Claude",
			Enabled:            true,
			Limit:              DefaultLimit,
			AlertThresholds:    DefaultThresholds(),
			ResetIntervalHours: DefaultResetIntervalHours,
		},
		Usage:    newUsageState(DefaultLimit, DefaultResetIntervalHours, now),
		notified: make(map[int]bool),
	}
	return AppState{
		Providers:      map[string]*ProviderState{"claude": claude},
		ActiveProvider: "claude",
		Settings:       Settings{},
	}
}

// reconcileLocked repairs a loaded aggregate: nil maps, zeroed limits, a
// dangling active pointer. The notified sets always start empty; they are
// scoped to the current window and a restart begins a fresh observation.
func (m *Manager) reconcileLocked() {
	if m.state.Providers == nil {
		m.state.Providers = make(map[string]*ProviderState)
	}
	for id, p := range m.state.Providers {
		if p == nil {
			delete(m.state.Providers, id)
			continue
		}
		p.notified = make(map[int]bool)
		p.Config.ID = id
		if p.Config.Limit <= 0 {
			p.Config.Limit = DefaultLimit
		}
		if p.Config.ResetIntervalHours <= 0 {
			p.Config.ResetIntervalHours = DefaultResetIntervalHours
		}
		if p.Config.AlertThresholds == nil {
			p.Config.AlertThresholds = DefaultThresholds()
		}
		p.Usage.Limit = p.Config.Limit
		if p.Usage.Used > p.Usage.Limit {
			p.Usage.Used = p.Usage.Limit
		}
		p.Usage.Percent = percentOf(p.Usage.Used, p.Usage.Limit)
		if p.Usage.History == nil {
			p.Usage.History = []HistoryEntry{}
		}
		if p.Usage.ResetTime == 0 {
			p.Usage.ResetTime = m.now().Unix() + int64(p.Config.ResetIntervalHours)*3600
		}
	}

	if len(m.state.Providers) == 0 {
		m.state = m.defaultState()
		return
	}
	if _, ok := m.state.Providers[m.state.ActiveProvider]; !ok {
		for id := range m.state.Providers {
			m.state.ActiveProvider = id
			break
		}
	}
}

// saveLocked persists the aggregate best-effort: disk failures are logged
// and swallowed, never rolled back or surfaced. Accepted durability
// trade-off for single-user desktop state.
func (m *Manager) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(m.stateFile), 0755); err != nil {
		log.Printf("⚠️ Failed to create data directory: %v", err)
		return
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		log.Printf("⚠️ Failed to marshal state: %v", err)
		return
	}
	if err := os.WriteFile(m.stateFile, data, 0644); err != nil {
		log.Printf("⚠️ Failed to write state file: %v", err)
	}
}

// emitUsage notifies the UI boundary; must be called outside the lock
func (m *Manager) emitUsage(providerID string, usage UsageState) {
	if m.onUsageUpdated != nil {
		m.onUsageUpdated(providerID, usage)
	}
}

// GetUsage returns a copy of the provider's usage state
func (m *Manager) GetUsage(providerID string) (UsageState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.Providers[providerID]
	if !ok {
		return UsageState{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return cloneUsage(p.Usage), nil
}

// GetProvider returns a copy of the provider's configuration
func (m *Manager) GetProvider(providerID string) (ProviderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.Providers[providerID]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return cloneConfig(p.Config), nil
}

// ListProviders returns copies of all provider configurations
func (m *Manager) ListProviders() []ProviderConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProviderConfig, 0, len(m.state.Providers))
	for _, p := range m.state.Providers {
		out = append(out, cloneConfig(p.Config))
	}
	return out
}

// ActiveProvider returns the currently selected provider id
func (m *Manager) ActiveProvider() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ActiveProvider
}

// SwitchActive changes the active provider selector
func (m *Manager) SwitchActive(providerID string) (UsageState, error) {
	m.mu.Lock()
	p, ok := m.state.Providers[providerID]
	if !ok {
		m.mu.Unlock()
		return UsageState{}, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	m.state.ActiveProvider = providerID
	m.saveLocked()
	usage := cloneUsage(p.Usage)
	m.mu.Unlock()

	m.emitUsage(providerID, usage)
	return usage, nil
}

// AddProvider registers a new provider with a fresh usage window. Zeroed
// fields fall back to defaults.
func (m *Manager) AddProvider(cfg ProviderConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.ID == "" {
		return errors.New("provider id must not be empty")
	}
	if _, exists := m.state.Providers[cfg.ID]; exists {
		return fmt.Errorf("provider %q already exists", cfg.ID)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.ResetIntervalHours <= 0 {
		cfg.ResetIntervalHours = DefaultResetIntervalHours
	}
	if cfg.AlertThresholds == nil {
		cfg.AlertThresholds = DefaultThresholds()
	}
	if cfg.Kind == "" {
		cfg.Kind = KindManual
	}
	cfg.HasAPIKey = false

	m.state.Providers[cfg.ID] = &ProviderState{
		Config:   cfg,
		Usage:    newUsageState(cfg.Limit, cfg.ResetIntervalHours, m.now()),
		notified: make(map[int]bool),
	}
	m.saveLocked()
	return nil
}

// CustomCredentialsPath returns the configured custom credentials path
func (m *Manager) CustomCredentialsPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Settings.CustomCredentialsPath
}

// SetCustomCredentialsPath updates the custom credentials path setting
func (m *Manager) SetCustomCredentialsPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Settings.CustomCredentialsPath = path
	m.saveLocked()
}

// ProviderAPIKey reads a provider's API key from the secret store
func (m *Manager) ProviderAPIKey(providerID string) (string, error) {
	m.mu.Lock()
	_, ok := m.state.Providers[providerID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	key, err := m.secrets.Get(apiKeySecretKey(providerID))
	if errors.Is(err, secretstore.ErrNotFound) {
		return "", nil
	}
	return key, err
}

func cloneConfig(cfg ProviderConfig) ProviderConfig {
	out := cfg
	out.AlertThresholds = make([]int, len(cfg.AlertThresholds))
	copy(out.AlertThresholds, cfg.AlertThresholds)
	return out
}

func percentOf(used, limit int) int {
	if limit <= 0 {
		return 0
	}
	return used * 100 / limit
}
