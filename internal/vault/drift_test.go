package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PopeYeahWine/MeterAI/internal/credential"
	"github.com/PopeYeahWine/MeterAI/internal/secretstore"
)

// driftFixture wires a detector against a single credential file the test
// can rewrite to simulate source mutations
type driftFixture struct {
	detector   *Detector
	vault      *Vault
	sourcePath string
	t          *testing.T
}

func newDriftFixture(t *testing.T) *driftFixture {
	t.Helper()
	dataDir := t.TempDir()
	sourcePath := filepath.Join(t.TempDir(), ".credentials.json")

	v := New(secretstore.NewMemory(), dataDir)
	resolver := credential.NewResolverWithLookup(nil, nil)
	detector := NewDetector(v, resolver, func() string { return sourcePath }, dataDir)

	return &driftFixture{detector: detector, vault: v, sourcePath: sourcePath, t: t}
}

func (f *driftFixture) setSourceToken(token string) {
	f.t.Helper()
	content := `{"claudeAiOauth":{"accessToken":"` + token + `","refreshToken":"r-` + token + `"}}`
	if err := os.WriteFile(f.sourcePath, []byte(content), 0600); err != nil {
		f.t.Fatalf("write source: %v", err)
	}
}

func TestCheckVaultEmptySourcePresent(t *testing.T) {
	f := newDriftFixture(t)
	f.setSourceToken("token-a")

	entry := f.detector.Check()
	if !entry.Changed {
		t.Error("empty vault with a present source must report drift")
	}
	if entry.OldFingerprint != "" {
		t.Errorf("old fingerprint = %q, want empty", entry.OldFingerprint)
	}
	if entry.NewFingerprint != Fingerprint("token-a") {
		t.Errorf("new fingerprint mismatch")
	}
	if entry.Source != credential.SourceCustom+":"+f.sourcePath {
		t.Errorf("source = %q", entry.Source)
	}
}

func TestCheckSourceAbsent(t *testing.T) {
	f := newDriftFixture(t)

	entry := f.detector.Check()
	if entry.Changed {
		t.Error("absent source is never drift")
	}
	if entry.Source != credential.SourceNone {
		t.Errorf("source = %q, want %q", entry.Source, credential.SourceNone)
	}
}

func TestCopyThenCheckRoundTrip(t *testing.T) {
	f := newDriftFixture(t)
	f.setSourceToken("token-a")

	stored, err := f.detector.CopyToInternal()
	if err != nil {
		t.Fatalf("CopyToInternal: %v", err)
	}
	if stored.Token != "token-a" {
		t.Errorf("stored token = %q", stored.Token)
	}

	// Vault now matches source
	if entry := f.detector.Check(); entry.Changed {
		t.Error("check right after copy must report no drift")
	}

	// Source token rotates underneath us
	f.setSourceToken("token-b")
	entry := f.detector.Check()
	if !entry.Changed {
		t.Error("rotated source must report drift")
	}
	if entry.OldFingerprint != Fingerprint("token-a") {
		t.Errorf("old fingerprint = %q, want fingerprint of token-a", entry.OldFingerprint)
	}
	if entry.NewFingerprint != Fingerprint("token-b") {
		t.Errorf("new fingerprint = %q, want fingerprint of token-b", entry.NewFingerprint)
	}
}

func TestCopyToInternalNoSource(t *testing.T) {
	f := newDriftFixture(t)

	if _, err := f.detector.CopyToInternal(); err == nil {
		t.Fatal("expected an error when nothing resolves")
	}
}

func TestCopyToInternalUnchangedFingerprint(t *testing.T) {
	f := newDriftFixture(t)
	f.setSourceToken("token-a")

	if _, err := f.detector.CopyToInternal(); err != nil {
		t.Fatalf("CopyToInternal: %v", err)
	}
	entries, _ := f.detector.ChangeLog()
	logged := len(entries)

	// Copying the same token again refreshes metadata but logs no change
	if _, err := f.detector.CopyToInternal(); err != nil {
		t.Fatalf("second CopyToInternal: %v", err)
	}
	entries, _ = f.detector.ChangeLog()
	if len(entries) != logged {
		t.Errorf("unchanged copy appended a log entry: %d -> %d", logged, len(entries))
	}
}

func TestChangeLogRecordsEveryCheck(t *testing.T) {
	f := newDriftFixture(t)
	f.setSourceToken("token-a")

	f.detector.Check()
	f.detector.Check()
	f.detector.Check()

	entries, lastCheck := f.detector.ChangeLog()
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3 (every check is an observation)", len(entries))
	}
	if lastCheck == nil {
		t.Error("last_check must be set")
	}
}

func TestChangeLogCap(t *testing.T) {
	f := newDriftFixture(t)
	f.setSourceToken("token-a")

	for i := 0; i < maxChangeLogEntries+20; i++ {
		f.detector.Check()
	}

	entries, _ := f.detector.ChangeLog()
	if len(entries) != maxChangeLogEntries {
		t.Errorf("entries = %d, want cap %d", len(entries), maxChangeLogEntries)
	}
}
