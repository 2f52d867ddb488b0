package storage

import (
	"context"
	"sync"
)

// Memory is an in-process KV. It does not survive restarts and is meant for
// tests and one-shot commands.
type Memory struct {
	mu    sync.RWMutex
	store map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.store[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.store, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
