package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockStorage is an in-memory Storage for tests.
type MockStorage struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	packs    map[string]*BehaviorPack
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*Session),
		packs:    make(map[string]*BehaviorPack),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return nil }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) SaveSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id], nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// AddPack registers a behavior pack for tests.
func (m *MockStorage) AddPack(name string, pack *BehaviorPack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packs[name] = pack
}

func (m *MockStorage) LoadPack(ctx context.Context, name string) (*BehaviorPack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.packs[name], nil
}

func (m *MockStorage) ListPacks(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.packs))
	for name := range m.packs {
		names = append(names, name)
	}
	return names, nil
}
