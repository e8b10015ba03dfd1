// Package kv provides the durable key-value storage behind the local
// catalog variant. Collections are stored wholesale, one JSON-encoded
// record per key. The Store interface exists so the catalog can run
// against Redis in production and against an in-memory map in tests and
// throwaway dev sessions.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrNoRecord is returned by Load when the key has never been written.
var ErrNoRecord = errors.New("kv: no record")

// Store is the durable storage contract used by the local catalog.
type Store interface {
	// Load unmarshals the record under key into dest. Returns ErrNoRecord
	// when the key is absent.
	Load(ctx context.Context, key string, dest any) error
	// Save marshals value and replaces the record under key.
	Save(ctx context.Context, key string, value any) error
	// Delete removes the record under key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// Memory is a volatile in-memory Store. It backs tests and local-mode runs
// without a Redis instance; nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Load(ctx context.Context, key string, dest any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNoRecord
	}
	return json.Unmarshal(raw, dest)
}

func (m *Memory) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
