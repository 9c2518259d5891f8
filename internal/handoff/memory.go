package handoff

import (
	"context"
	"sync"
)

// Memory is an in-process KV, useful for tests and one-shot runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}

func (m *Memory) Replace(_ context.Context, values map[string]string) error {
	next := make(map[string]string, len(values))
	for k, v := range values {
		next[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = next
	return nil
}
