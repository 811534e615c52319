package session

import (
	"context"
	"sync"

	"github.com/dshills/reflectgraph/workflow/model"
)

// MemStore is an in-memory Store.
//
// Thread-safe. History is lost when the process exits; use SQLiteStore or
// MySQLStore when persistence matters.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string][]model.Message
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]model.Message)}
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, sessionID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.sessions[sessionID]
	result := make([]model.Message, len(history))
	copy(result, history)
	return result, nil
}

// Append implements Store.
func (m *MemStore) Append(_ context.Context, sessionID string, msgs ...model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = append(m.sessions[sessionID], msgs...)
	return nil
}

// Clear implements Store.
func (m *MemStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}
