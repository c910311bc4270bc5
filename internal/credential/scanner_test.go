package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseCredentialJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantToken   string
		wantRefresh string
		wantSubType string
		wantNil     bool
	}{
		{
			name:        "nested schema",
			input:       `{"claudeAiOauth":{"accessToken":"sk-ant-oat01-abc","refreshToken":"sk-ant-ort01-def","expiresAt":1767225600000,"subscriptionType":"max"}}`,
			wantToken:   "sk-ant-oat01-abc",
			wantRefresh: "sk-ant-ort01-def",
			wantSubType: "max",
		},
		{
			name:        "legacy flat schema",
			input:       `{"accessToken":"sk-ant-oat01-flat","refreshToken":"sk-ant-ort01-flat","expiresAt":1767225600000}`,
			wantToken:   "sk-ant-oat01-flat",
			wantRefresh: "sk-ant-ort01-flat",
		},
		{
			name:      "nested wins over flat",
			input:     `{"accessToken":"flat-token","claudeAiOauth":{"accessToken":"nested-token"}}`,
			wantToken: "nested-token",
		},
		{
			name:    "invalid JSON",
			input:   `{"accessToken": `,
			wantNil: true,
		},
		{
			name:    "empty token",
			input:   `{"claudeAiOauth":{"accessToken":""}}`,
			wantNil: true,
		},
		{
			name:    "no token field",
			input:   `{"claudeAiOauth":{"refreshToken":"only-refresh"}}`,
			wantNil: true,
		},
		{
			name:    "empty document",
			input:   `{}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := parseCredentialJSON([]byte(tt.input))

			if tt.wantNil {
				if resolved != nil {
					t.Fatalf("expected nil, got token %q", resolved.Token)
				}
				return
			}
			if resolved == nil {
				t.Fatal("expected a credential, got nil")
			}
			if resolved.Token != tt.wantToken {
				t.Errorf("token = %q, want %q", resolved.Token, tt.wantToken)
			}
			if resolved.RefreshToken != tt.wantRefresh {
				t.Errorf("refreshToken = %q, want %q", resolved.RefreshToken, tt.wantRefresh)
			}
			if resolved.SubscriptionType != tt.wantSubType {
				t.Errorf("subscriptionType = %q, want %q", resolved.SubscriptionType, tt.wantSubType)
			}
		})
	}
}

func TestParseCredentialJSONExpiry(t *testing.T) {
	resolved := parseCredentialJSON([]byte(`{"claudeAiOauth":{"accessToken":"tok","expiresAt":1767225600000}}`))
	if resolved == nil {
		t.Fatal("expected a credential")
	}
	if resolved.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	want := time.UnixMilli(1767225600000)
	if !resolved.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", resolved.ExpiresAt, want)
	}

	resolved = parseCredentialJSON([]byte(`{"claudeAiOauth":{"accessToken":"tok"}}`))
	if resolved == nil || resolved.ExpiresAt != nil {
		t.Error("expected expiry to be absent when the field is missing")
	}
}

func TestReadCandidateMissingFile(t *testing.T) {
	if resolved := readCandidate(Candidate{Path: filepath.Join(t.TempDir(), "absent.json")}); resolved != nil {
		t.Errorf("missing file should be a miss, got %+v", resolved)
	}
}

func TestReadCandidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")
	content := `{"claudeAiOauth":{"accessToken":"from-file"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	resolved := readCandidate(Candidate{Path: path})
	if resolved == nil || resolved.Token != "from-file" {
		t.Fatalf("expected token from file, got %+v", resolved)
	}
}
