package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps records in a map. It is the default for one-shot CLI runs and
// for tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[p] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Load(ctx context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) List(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	return matchAll(pattern, keys)
}

func (m *Memory) Exists(ctx context.Context, p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[p]
	return ok
}

func (m *Memory) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[p]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	delete(m.records, p)
	return nil
}
