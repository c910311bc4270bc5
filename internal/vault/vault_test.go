package vault

import (
	"strings"
	"testing"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/secretstore"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short token fully redacted",
			input: "short",
			want:  "*****",
		},
		{
			name:  "boundary length fully redacted",
			input: strings.Repeat("a", 20),
			want:  strings.Repeat("*", 20),
		},
		{
			name:  "long token keeps prefix and suffix",
			input: "sk-ant-REDACTED",
			want:  "sk-ant-oauth-01...cdef",
		},
		{
			name:  "empty token",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.input); got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskNeverLeaksMiddle(t *testing.T) {
	token := "sk-ant-REDACTED"
	masked := Mask(token)

	middle := token[maskPrefixLen : len(token)-maskSuffixLen]
	if strings.Contains(masked, middle) {
		t.Errorf("mask leaks token middle: %q", masked)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some-token")
	if len(fp) != fingerprintLen {
		t.Fatalf("fingerprint length = %d, want %d", len(fp), fingerprintLen)
	}
	if fp != Fingerprint("some-token") {
		t.Error("fingerprint is not deterministic")
	}
	if fp == Fingerprint("other-token") {
		t.Error("different tokens share a fingerprint")
	}
}

func TestVaultStoreLoadClear(t *testing.T) {
	secrets := secretstore.NewMemory()
	v := New(secrets, t.TempDir())

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	stored, err := v.Store("access-token-value", "refresh-token-value", "auto:/home/u/.claude/.credentials.json", &expiry)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if stored.TokenFingerprint != Fingerprint("access-token-value") {
		t.Errorf("stored fingerprint mismatch")
	}

	entry, err := v.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a vault entry")
	}
	if entry.Token != "access-token-value" {
		t.Errorf("token = %q", entry.Token)
	}
	if entry.RefreshToken != "refresh-token-value" {
		t.Errorf("refreshToken = %q", entry.RefreshToken)
	}
	if entry.SourcePath != "auto:/home/u/.claude/.credentials.json" {
		t.Errorf("sourcePath = %q", entry.SourcePath)
	}
	if entry.ExpiresAt == nil || !entry.ExpiresAt.Equal(expiry) {
		t.Errorf("expiresAt = %v, want %v", entry.ExpiresAt, expiry)
	}

	if err := v.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entry, err = v.Load()
	if err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if entry != nil {
		t.Errorf("expected empty vault after Clear, got %+v", entry)
	}

	// Clearing an empty vault is not an error
	if err := v.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestVaultStoreOverwrites(t *testing.T) {
	secrets := secretstore.NewMemory()
	v := New(secrets, t.TempDir())

	if _, err := v.Store("first-token", "first-refresh", "custom:/a", nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Second copy has no refresh token; the old one must not survive
	if _, err := v.Store("second-token", "", "env:VAR", nil); err != nil {
		t.Fatalf("Store: %v", err)
	}

	entry, err := v.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry.Token != "second-token" {
		t.Errorf("token = %q, want second-token", entry.Token)
	}
	if entry.RefreshToken != "" {
		t.Errorf("stale refresh token survived: %q", entry.RefreshToken)
	}
	if entry.SourcePath != "env:VAR" {
		t.Errorf("sourcePath = %q, want env:VAR", entry.SourcePath)
	}
}

func TestVaultStoreAbortsOnSecretFailure(t *testing.T) {
	secrets := secretstore.NewMemory()
	secrets.FailWrites = true
	v := New(secrets, t.TempDir())

	if _, err := v.Store("token", "", "custom:/a", nil); err == nil {
		t.Fatal("expected an error when the secret store fails")
	}

	// Metadata must not exist referencing an unstored token
	entry, err := v.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry != nil {
		t.Errorf("metadata written despite secret failure: %+v", entry)
	}
}

func TestVaultLoadWithMissingSecret(t *testing.T) {
	secrets := secretstore.NewMemory()
	v := New(secrets, t.TempDir())

	if _, err := v.Store("the-token", "", "custom:/a", nil); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Secret disappears out from under the metadata (e.g. keychain wiped)
	if err := secrets.Delete("internal-oauth-token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entry, err := v.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry == nil {
		t.Fatal("entry presence must survive a missing secret")
	}
	if entry.Token != "" {
		t.Errorf("token should be empty, got %q", entry.Token)
	}
	if entry.TokenFingerprint == "" {
		t.Error("fingerprint should still be present in metadata")
	}
}
