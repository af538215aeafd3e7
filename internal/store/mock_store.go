// ABOUTME: Mock Store implementation for testing and memory-only runs
// ABOUTME: Counts loads and saves and can inject failures

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	updated   map[string]time.Time
	closed    bool

	// LoadErr and SaveErr, when set, are returned by every load/save.
	LoadErr error
	SaveErr error

	loads int
	saves int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		snapshots: make(map[string][]byte),
		updated:   make(map[string]time.Time),
	}
}

// LoadSnapshot returns a copy of the stored blob.
func (m *MockStore) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.closed {
		return nil, ErrClosed
	}
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	blob, ok := m.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

// SaveSnapshot stores a copy of blob.
func (m *MockStore) SaveSnapshot(ctx context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.closed {
		return ErrClosed
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}

	m.snapshots[key] = append([]byte(nil), blob...)
	m.updated[key] = time.Now()
	return nil
}

// DeleteSnapshot removes key.
func (m *MockStore) DeleteSnapshot(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.snapshots, key)
	delete(m.updated, key)
	return nil
}

// ListSnapshots returns metadata ordered by key.
func (m *MockStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	infos := make([]SnapshotInfo, 0, len(m.snapshots))
	for key, blob := range m.snapshots {
		infos = append(infos, SnapshotInfo{Key: key, Size: len(blob), UpdatedAt: m.updated[key]})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Close marks the store closed. Later calls fail with ErrClosed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetErrors sets the injected load and save errors under the store's lock.
func (m *MockStore) SetErrors(loadErr, saveErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadErr = loadErr
	m.SaveErr = saveErr
}

// Loads returns how many times LoadSnapshot was called.
func (m *MockStore) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

// Saves returns how many times SaveSnapshot was called, including failed calls.
func (m *MockStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Raw returns the stored blob for key without counting a load.
func (m *MockStore) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.snapshots[key]
	return append([]byte(nil), blob...), ok
}
