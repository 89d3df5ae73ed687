package currency

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences in process. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]map[string]string),
	}
}

func (m *MemoryStore) GetPreference(_ context.Context, session, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs[session][key], nil
}

func (m *MemoryStore) SetPreference(_ context.Context, session, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.prefs[session]
	if !ok {
		sess = make(map[string]string)
		m.prefs[session] = sess
	}
	sess[key] = value
	return nil
}
