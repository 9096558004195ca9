package session

import (
	"context"
	"errors"
	"sync"

	"github.com/pavelanni/memorylane/internal/model"
)

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = errors.New("session not found")

// Store persists session snapshots so a session survives a process restart
// or a sweep of the in-process map.
type Store interface {
	Put(ctx context.Context, id string, st model.SessionState) error
	Load(ctx context.Context, id string) (model.SessionState, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps snapshots in a map.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]model.SessionState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]model.SessionState)}
}

func (m *MemoryStore) Put(_ context.Context, id string, st model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = st
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (model.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.snapshots[id]
	if !ok {
		return model.SessionState{}, ErrNotFound
	}
	return st, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}
