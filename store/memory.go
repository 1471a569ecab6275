package store

import (
	"context"
	"sync"
)

// Memory is an in-process Sink for tests and ephemeral coordinators.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailSaves, when set, makes every Save return the given error.
	// Tests use it to exercise persistence-failure rollback.
	FailSaves error
}

var _ Sink = (*Memory)(nil)

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (m *Memory) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (m *Memory) Close() error { return nil }
