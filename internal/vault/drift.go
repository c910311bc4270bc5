package vault

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/credential"
)

// maxChangeLogEntries bounds the drift change log; oldest entries are
// evicted first
const maxChangeLogEntries = 100

// ChangeEntry records one drift observation. Every check produces an entry,
// changed or not: the log records observations, not just transitions.
type ChangeEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Changed        bool      `json:"changed"`
	OldFingerprint string    `json:"old_fingerprint,omitempty"`
	NewFingerprint string    `json:"new_fingerprint,omitempty"`
	Source         string    `json:"source"`
}

// changeLog is the persisted change-log document
type changeLog struct {
	Entries   []ChangeEntry `json:"entries"`
	LastCheck *time.Time    `json:"last_check,omitempty"`
}

// Detector compares the vault fingerprint against the currently resolvable
// source credential and maintains the bounded change log.
type Detector struct {
	mu         sync.Mutex
	vault      *Vault
	resolver   *credential.Resolver
	customPath func() string // configured custom credentials path, "" when unset
	logFile    string
}

// NewDetector creates a drift detector persisting its change log under dataDir
func NewDetector(v *Vault, resolver *credential.Resolver, customPath func() string, dataDir string) *Detector {
	return &Detector{
		vault:      v,
		resolver:   resolver,
		customPath: customPath,
		logFile:    filepath.Join(dataDir, "changelog.json"),
	}
}

// Check resolves the current source credential and compares fingerprints.
// Drift is reported when the source has a credential the vault lacks, or
// when the two fingerprints differ. A missing source is never drift.
func (d *Detector) Check() ChangeEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolver.Resolve(d.customPath())
	oldFp := d.vault.CurrentFingerprint()

	entry := ChangeEntry{
		Timestamp:      time.Now(),
		OldFingerprint: oldFp,
		Source:         credential.SourceNone,
	}

	if resolved != nil {
		entry.NewFingerprint = Fingerprint(resolved.Token)
		entry.Source = resolved.Source + ":" + resolved.Path
		entry.Changed = oldFp == "" || oldFp != entry.NewFingerprint
	}

	if entry.Changed {
		log.Printf("🔔 Source credential drift detected (%s → %s)", orNone(oldFp), entry.NewFingerprint)
	}

	d.appendLocked(entry)
	return entry
}

// CopyToInternal stores the currently resolvable source credential into the
// vault. The store runs even when the fingerprint is unchanged (refreshing
// the metadata), but only a fingerprint transition is logged as a change.
func (d *Detector) CopyToInternal() (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := d.resolver.Resolve(d.customPath())
	if resolved == nil {
		return nil, ErrCredentialNotFound
	}

	oldFp := d.vault.CurrentFingerprint()
	sourceLabel := resolved.Source + ":" + resolved.Path

	entry, err := d.vault.Store(resolved.Token, resolved.RefreshToken, sourceLabel, resolved.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if entry.TokenFingerprint != oldFp {
		log.Printf("🔐 Credential copied to internal storage (%s → %s, source %s)",
			orNone(oldFp), entry.TokenFingerprint, sourceLabel)
		d.appendLocked(ChangeEntry{
			Timestamp:      time.Now(),
			Changed:        true,
			OldFingerprint: oldFp,
			NewFingerprint: entry.TokenFingerprint,
			Source:         sourceLabel,
		})
	}

	return entry, nil
}

// ChangeLog returns the recorded entries (oldest first) and the time of the
// last check
func (d *Detector) ChangeLog() ([]ChangeEntry, *time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cl := d.loadLocked()
	entries := make([]ChangeEntry, len(cl.Entries))
	copy(entries, cl.Entries)
	return entries, cl.LastCheck
}

// appendLocked appends one entry, evicts past the cap and persists the log.
// Change-log persistence is best-effort: a failed write is logged and the
// in-memory result still returned.
func (d *Detector) appendLocked(entry ChangeEntry) {
	cl := d.loadLocked()

	cl.Entries = append(cl.Entries, entry)
	if len(cl.Entries) > maxChangeLogEntries {
		cl.Entries = cl.Entries[len(cl.Entries)-maxChangeLogEntries:]
	}
	now := entry.Timestamp
	cl.LastCheck = &now

	if err := os.MkdirAll(filepath.Dir(d.logFile), 0755); err != nil {
		log.Printf("⚠️ Failed to create data directory for change log: %v", err)
		return
	}
	data, err := json.MarshalIndent(cl, "", "  ")
	if err != nil {
		log.Printf("⚠️ Failed to marshal change log: %v", err)
		return
	}
	if err := os.WriteFile(d.logFile, data, 0644); err != nil {
		log.Printf("⚠️ Failed to write change log: %v", err)
	}
}

func (d *Detector) loadLocked() changeLog {
	var cl changeLog
	data, err := os.ReadFile(d.logFile)
	if err != nil {
		return cl
	}
	if err := json.Unmarshal(data, &cl); err != nil {
		log.Printf("⚠️ Change log corrupted, starting fresh: %v", err)
		return changeLog{}
	}
	return cl
}

func orNone(fingerprint string) string {
	if fingerprint == "" {
		return "none"
	}
	return fingerprint
}
