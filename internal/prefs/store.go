// Package prefs is the key-value preference store the client persists its
// credential and model selection in.
package prefs

import (
	"context"
	"errors"
	"sync"
)

// Well-known preference keys
const (
	KeyAPIKey        = "openrouter_api_key"
	KeySelectedModel = "selected_model"

	// KeyAPIKeyCleared is present once the user has cleared the key and
	// until they set a new one
	KeyAPIKeyCleared = "openrouter_api_key_cleared"
)

// ErrNotFound is returned by Get when a key has never been set
var ErrNotFound = errors.New("preference not found")

// Store defines the interface for preference persistence
type Store interface {
	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// GetString returns the value for key, or "" when it is not set
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// MemoryStore keeps preferences in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value or ErrNotFound
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes key
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
