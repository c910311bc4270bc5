// Package usagelog keeps an append-only audit trail of usage mutations in a
// local SQLite database. The trail is supplemental: the JSON aggregate stays
// the source of truth and audit failures never affect quota operations.
package usagelog

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event types recorded in the trail
const (
	EventRecord      = "record"
	EventAutoReset   = "auto_reset"
	EventManualReset = "manual_reset"
)

// Entry is one audited usage mutation
type Entry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ProviderID string    `json:"providerId"`
	Event      string    `json:"event"`
	Delta      int       `json:"delta"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
}

// AuditLog wraps the SQLite-backed trail
type AuditLog struct {
	db *sql.DB
}

// Open initializes (or creates) the audit database under dataDir
func Open(dataDir string) (*AuditLog, error) {
	dbPath := filepath.Join(dataDir, "usage_audit.db")

	// _busy_timeout=5000 - wait up to 5 seconds when database is locked
	connStr := dbPath + "?_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Single connection; SQLite doesn't benefit from multiple writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("⚠️ Failed to enable WAL mode: %v", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		provider_id TEXT NOT NULL,
		event TEXT NOT NULL,
		delta INTEGER NOT NULL,
		used INTEGER NOT NULL,
		lim INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_events_provider_ts
		ON usage_events(provider_id, ts);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	log.Printf("📦 Usage audit log initialized: %s", dbPath)
	return &AuditLog{db: db}, nil
}

// Close releases the underlying database handle
func (a *AuditLog) Close() error {
	return a.db.Close()
}

// Record appends one event to the trail
func (a *AuditLog) Record(providerID, event string, delta, used, limit int) error {
	_, err := a.db.Exec(
		`INSERT INTO usage_events (ts, provider_id, event, delta, used, lim) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), providerID, event, delta, used, limit,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events for a provider, newest first
func (a *AuditLog) RecentEvents(providerID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(
		`SELECT id, ts, provider_id, event, delta, used, lim
		 FROM usage_events WHERE provider_id = ?
		 ORDER BY ts DESC, id DESC LIMIT ?`,
		providerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.ProviderID, &e.Event, &e.Delta, &e.Used, &e.Limit); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune removes events older than the retention window
func (a *AuditLog) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	res, err := a.db.Exec(`DELETE FROM usage_events WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage events: %w", err)
	}
	return res.RowsAffected()
}
