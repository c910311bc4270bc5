// Package secretstore abstracts the OS-level secret storage used for API
// keys and the internal OAuth token copy. Secrets never touch the JSON
// documents on disk; they round-trip through this store instead.
package secretstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no secret exists under the requested key
var ErrNotFound = errors.New("secret not found")

// Store persists secrets by logical key within a fixed service namespace
type Store interface {
	Set(key, secret string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Keyring is the OS keychain implementation of Store
type Keyring struct {
	service string
}

// NewKeyring creates a keychain-backed store under the given service namespace
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

// Set writes a secret to the OS keychain
func (k *Keyring) Set(key, secret string) error {
	if err := keyring.Set(k.service, key, secret); err != nil {
		return fmt.Errorf("failed to write secret %q to keychain: %w", key, err)
	}
	return nil
}

// Get reads a secret from the OS keychain
func (k *Keyring) Get(key string) (string, error) {
	secret, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret %q from keychain: %w", key, err)
	}
	return secret, nil
}

// Delete removes a secret from the OS keychain. Deleting an absent key is
// not an error.
func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("failed to delete secret %q from keychain: %w", key, err)
}

// Memory is an in-process Store used in tests and as a fallback when no
// keychain is available
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string

	// FailWrites makes Set return an error; used to test abort-before-metadata
	FailWrites bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) Set(key, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("secret store unavailable")
	}
	m.secrets[key] = secret
	return nil
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[key]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, key)
	return nil
}
