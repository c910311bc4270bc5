// Package vault keeps a private copy of the externally managed OAuth
// credential: the secrets live in the OS secret store, the non-secret
// metadata in a JSON document. The raw token never reaches disk or logs.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PopeYeahWine/MeterAI/internal/secretstore"
)

// Secret store keys for the internal credential copy
const (
	keyInternalToken   = "internal-oauth-token"
	keyInternalRefresh = "internal-oauth-refresh"
)

// fingerprintLen is the number of hex characters kept from the token hash.
// Long enough for equality checks, short enough to never leak the secret.
const fingerprintLen = 16

const (
	maskPrefixLen = 15
	maskSuffixLen = 4
	maskMinLen    = 20 // tokens at or below this length are fully redacted
)

// ErrCredentialNotFound indicates that no source credential could be resolved
var ErrCredentialNotFound = errors.New("no credential found in any source")

// Metadata is the non-secret part of the vault entry, persisted as JSON
type Metadata struct {
	TokenFingerprint string     `json:"token_fingerprint"`
	CopiedAt         time.Time  `json:"copied_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	SourcePath       string     `json:"source_path,omitempty"`
}

// Entry is a loaded vault entry: metadata merged with the secrets from the
// secret store. Token may be empty even though the entry exists, when the
// metadata survived but the secret did not. Callers must treat "vault has
// an entry" and "token is retrievable" as distinct conditions.
type Entry struct {
	Metadata
	Token        string `json:"-"`
	RefreshToken string `json:"-"`
}

// Vault persists the internal credential copy
type Vault struct {
	mu       sync.Mutex
	secrets  secretstore.Store
	metaFile string
}

// New creates a vault storing metadata under dataDir
func New(secrets secretstore.Store, dataDir string) *Vault {
	return &Vault{
		secrets:  secrets,
		metaFile: filepath.Join(dataDir, "vault.json"),
	}
}

// Fingerprint returns the truncated content hash of a token, used for
// equality comparison without retaining the token itself
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Mask produces a display-safe token preview: short tokens are fully
// redacted, longer ones show a fixed prefix and the last few characters.
func Mask(token string) string {
	if len(token) <= maskMinLen {
		return strings.Repeat("*", len(token))
	}
	return token[:maskPrefixLen] + "..." + token[len(token)-maskSuffixLen:]
}

// Store overwrites the vault with a new credential copy. The secrets are
// written first; if that fails the metadata is left untouched, so metadata
// never references a token absent from the secret store.
func (v *Vault) Store(token, refreshToken, sourceLabel string, expiresAt *time.Time) (*Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if token == "" {
		return nil, ErrCredentialNotFound
	}

	if err := v.secrets.Set(keyInternalToken, token); err != nil {
		return nil, fmt.Errorf("credential store failure: %w", err)
	}
	if refreshToken != "" {
		if err := v.secrets.Set(keyInternalRefresh, refreshToken); err != nil {
			return nil, fmt.Errorf("credential store failure: %w", err)
		}
	} else {
		// A stale refresh token from a previous copy must not outlive it
		if err := v.secrets.Delete(keyInternalRefresh); err != nil {
			return nil, fmt.Errorf("credential store failure: %w", err)
		}
	}

	meta := Metadata{
		TokenFingerprint: Fingerprint(token),
		CopiedAt:         time.Now(),
		ExpiresAt:        expiresAt,
		SourcePath:       sourceLabel,
	}

	if err := v.writeMetadata(meta); err != nil {
		return nil, err
	}

	return &Entry{Metadata: meta, Token: token, RefreshToken: refreshToken}, nil
}

// Load reads the vault entry, merging secrets into the metadata. Returns
// (nil, nil) when the vault is empty. A missing secret is not an error: the
// entry is returned with an empty Token for display purposes.
func (v *Vault) Load() (*Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.loadLocked()
}

func (v *Vault) loadLocked() (*Entry, error) {
	data, err := os.ReadFile(v.metaFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse vault metadata: %w", err)
	}

	entry := &Entry{Metadata: meta}

	if token, err := v.secrets.Get(keyInternalToken); err == nil {
		entry.Token = token
	} else if !errors.Is(err, secretstore.ErrNotFound) {
		return nil, err
	}
	if refresh, err := v.secrets.Get(keyInternalRefresh); err == nil {
		entry.RefreshToken = refresh
	} else if !errors.Is(err, secretstore.ErrNotFound) {
		return nil, err
	}

	return entry, nil
}

// CurrentFingerprint returns the stored token fingerprint, or "" when the
// vault is empty
func (v *Vault) CurrentFingerprint() string {
	entry, err := v.Load()
	if err != nil || entry == nil {
		return ""
	}
	return entry.TokenFingerprint
}

// Clear removes both the secrets and the metadata. Idempotent: clearing an
// empty vault succeeds.
func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.secrets.Delete(keyInternalToken); err != nil {
		return fmt.Errorf("credential store failure: %w", err)
	}
	if err := v.secrets.Delete(keyInternalRefresh); err != nil {
		return fmt.Errorf("credential store failure: %w", err)
	}

	if err := os.Remove(v.metaFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove vault metadata: %w", err)
	}
	return nil
}

func (v *Vault) writeMetadata(meta Metadata) error {
	if err := os.MkdirAll(filepath.Dir(v.metaFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault metadata: %w", err)
	}

	if err := os.WriteFile(v.metaFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault metadata: %w", err)
	}
	return nil
}
