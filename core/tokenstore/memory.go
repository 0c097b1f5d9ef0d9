package tokenstore

import (
	"context"
	"sync"
)

// Memory is the volatile backend: the token lives only as long as the
// process. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory creates an empty volatile store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *Memory) SetToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// FastToken implements FastReader. For the memory backend it is exact.
func (m *Memory) FastToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}
