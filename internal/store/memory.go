package store

import (
	"context"
	"errors"
	"sync"
)

// Memory is the in-process single-slot store, the default for a standalone
// kiosk where the portal process outlives page loads.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]string)}
}

// Get returns the slot for the scope.
func (m *Memory) Get(ctx context.Context, scope string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slots[scope]
	return id, ok, nil
}

// Set overwrites the slot.
func (m *Memory) Set(ctx context.Context, scope, sessionID string) error {
	if scope == "" {
		return errors.New("store: scope cannot be empty")
	}
	if sessionID == "" {
		return errors.New("store: session id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[scope] = sessionID
	return nil
}
