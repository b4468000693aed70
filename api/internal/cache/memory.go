package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Store for tests and single-node setups.
type Memory struct {
	mu      sync.RWMutex
	digests map[string]Digest
}

func NewMemory() *Memory {
	return &Memory{digests: make(map[string]Digest)}
}

func (m *Memory) Get(_ context.Context, testName string) (Digest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.digests[testName]
	if !ok {
		return Digest{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) Put(_ context.Context, d Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests[d.TestName] = d
	return nil
}
