package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const exportVersion = 1

// Export assembles a portable JSON snapshot of the aggregate. Credential
// metadata (fingerprints, timestamps) may be attached by the caller; secret
// material never enters the document since the aggregate serializer already
// excludes it and keys live in the secret store.
func (m *Manager) Export(credentialMeta interface{}) ([]byte, error) {
	m.mu.Lock()
	stateJSON, err := json.Marshal(m.state)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	doc := []byte(`{}`)
	doc, _ = sjson.SetBytes(doc, "version", exportVersion)
	doc, _ = sjson.SetBytes(doc, "exportedAt", m.now().UTC().Format(time.RFC3339))
	doc, _ = sjson.SetRawBytes(doc, "state", stateJSON)

	if credentialMeta != nil {
		metaJSON, err := json.Marshal(credentialMeta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal credential metadata: %w", err)
		}
		doc, _ = sjson.SetRawBytes(doc, "credential", metaJSON)
	}

	// Belt and braces: strip any secret-looking fields a future caller
	// might smuggle in through credentialMeta
	for _, path := range []string{"credential.token", "credential.refreshToken", "credential.apiKey"} {
		doc, _ = sjson.DeleteBytes(doc, path)
	}

	out, _ := json.MarshalIndent(json.RawMessage(doc), "", "  ")
	return out, nil
}

// Import replaces the aggregate with the state section of an exported
// document. Secret material is never part of the document, so imported
// providers come back with their HasAPIKey flags but the keys themselves
// must be re-entered.
func (m *Manager) Import(doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("import document is not valid JSON")
	}

	parsed := gjson.ParseBytes(doc)
	version := parsed.Get("version")
	if !version.Exists() || version.Int() != exportVersion {
		return fmt.Errorf("unsupported export version: %s", version.Raw)
	}
	stateSection := parsed.Get("state")
	if !stateSection.Exists() {
		return fmt.Errorf("import document has no state section")
	}

	var imported AppState
	if err := json.Unmarshal([]byte(stateSection.Raw), &imported); err != nil {
		return fmt.Errorf("failed to parse state section: %w", err)
	}

	m.mu.Lock()
	m.state = imported
	m.reconcileLocked()
	m.saveLocked()
	m.mu.Unlock()
	return nil
}
