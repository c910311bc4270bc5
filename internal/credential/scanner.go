// Package credential locates the externally managed OAuth credential among
// its possible sources: an explicit custom path, a well-known environment
// variable, or a fixed list of auto-detected file locations.
package credential

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tidwall/gjson"
)

// Source tiers for a resolved credential
const (
	SourceCustom = "custom"
	SourceEnv    = "env"
	SourceAuto   = "auto"
	SourceNone   = "none"
)

// EnvTokenVar holds a raw OAuth token directly, with no file parsing
const EnvTokenVar = "CLAUDE_CODE_OAUTH_TOKEN"

// Resolved is the outcome of a successful credential resolution. It is
// recomputed on every resolution call and never cached.
type Resolved struct {
	Token            string
	RefreshToken     string
	SubscriptionType string
	ExpiresAt        *time.Time

	// Provenance
	Source string // custom, env, auto
	Path   string // file path for custom/auto, variable name for env
}

// Candidate is one potential credential location: either a file path or an
// environment variable whose value is credential JSON.
type Candidate struct {
	Path   string
	EnvVar string
}

// autoCandidates returns the fixed auto-detect list for this platform.
// Ordering is significant: it is the tie-break when several locations hold
// credentials, so platform-primary paths come first.
func autoCandidates() []Candidate {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	candidates := []Candidate{
		{Path: filepath.Join(home, ".claude", ".credentials.json")},
		{Path: filepath.Join(home, ".claude", "credentials.json")},
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, Candidate{Path: filepath.Join(configDir, "claude", ".credentials.json")})
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			candidates = append(candidates, Candidate{
				Path: filepath.Join(appData, "Code", "User", "globalStorage", "anthropic.claude-code", ".credentials.json"),
			})
		}
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			candidates = append(candidates, Candidate{
				Path: filepath.Join(localAppData, "claude", ".credentials.json"),
			})
		}
	case "darwin":
		candidates = append(candidates, Candidate{
			Path: filepath.Join(home, "Library", "Application Support", "Claude", ".credentials.json"),
		})
	}

	return candidates
}

// readCandidate reads and parses one candidate location. A missing file,
// invalid JSON or absent token is a miss (nil), never an error: per-candidate
// failures must not abort the scan.
func readCandidate(c Candidate) *Resolved {
	var data []byte
	switch {
	case c.Path != "":
		content, err := os.ReadFile(c.Path)
		if err != nil {
			return nil
		}
		data = content
	case c.EnvVar != "":
		value := os.Getenv(c.EnvVar)
		if value == "" {
			return nil
		}
		data = []byte(value)
	default:
		return nil
	}

	return parseCredentialJSON(data)
}

// Parse extracts a credential from pasted JSON content, applying the same
// schema rules as file candidates. Returns nil when nothing usable is present.
func Parse(data []byte) *Resolved {
	return parseCredentialJSON(data)
}

// parseCredentialJSON extracts a credential from raw JSON bytes. Two schema
// variants are accepted: the nested claudeAiOauth wrapper and the legacy
// flat layout. The nested variant wins when both are present.
func parseCredentialJSON(data []byte) *Resolved {
	if !gjson.ValidBytes(data) {
		return nil
	}

	root := gjson.ParseBytes(data)

	section := root.Get("claudeAiOauth")
	if !section.Exists() {
		section = root
	}

	token := section.Get("accessToken").String()
	if token == "" {
		return nil
	}

	resolved := &Resolved{
		Token:            token,
		RefreshToken:     section.Get("refreshToken").String(),
		SubscriptionType: section.Get("subscriptionType").String(),
	}

	if ms := section.Get("expiresAt").Int(); ms > 0 {
		t := time.UnixMilli(ms)
		resolved.ExpiresAt = &t
	}

	return resolved
}
