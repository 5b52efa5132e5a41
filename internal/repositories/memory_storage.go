package repositories

import (
	"context"
	"sync"
	"time"
)

type memoryTab struct {
	items   map[string]string
	written time.Time
}

type memoryTabStorage struct {
	mu   sync.Mutex
	tabs map[string]*memoryTab
	now  func() time.Time
}

func NewMemoryTabStorage() TabStorage {
	return &memoryTabStorage{
		tabs: make(map[string]*memoryTab),
		now:  time.Now,
	}
}

// GetItem implements TabStorage.
func (m *memoryTabStorage) GetItem(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScope(scope); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.tabs[scope]
	if !ok {
		return "", false, nil
	}
	value, ok := tab.items[key]
	return value, ok, nil
}

// SetItem implements TabStorage.
func (m *memoryTabStorage) SetItem(ctx context.Context, scope, key, value string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.tabs[scope]
	if !ok {
		tab = &memoryTab{items: make(map[string]string)}
		m.tabs[scope] = tab
	}
	tab.items[key] = value
	tab.written = m.now()
	return nil
}

// RemoveItem implements TabStorage.
func (m *memoryTabStorage) RemoveItem(ctx context.Context, scope, key string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tab, ok := m.tabs[scope]; ok {
		delete(tab.items, key)
		tab.written = m.now()
	}
	return nil
}

// Clear implements TabStorage.
func (m *memoryTabStorage) Clear(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.tabs, scope)
	m.mu.Unlock()
	return nil
}

// Touch implements TabStorage.
func (m *memoryTabStorage) Touch(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tab, ok := m.tabs[scope]; ok {
		tab.written = m.now()
	}
	return nil
}

// PurgeIdle implements TabStorage.
func (m *memoryTabStorage) PurgeIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for scope, tab := range m.tabs {
		if tab.written.Before(cutoff) {
			delete(m.tabs, scope)
			purged++
		}
	}
	return purged, nil
}
