package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileTab struct {
	Items     map[string]string `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type fileTabStorage struct {
	mu  sync.Mutex
	dir string
}

// NewFileTabStorage keeps one JSON document per scope in dir. It backs the
// CLI, where each invocation is a new process.
func NewFileTabStorage(dir string) TabStorage {
	return &fileTabStorage{dir: dir}
}

func isSafeScope(scope string) bool {
	if len(scope) > 128 {
		return false
	}
	for _, r := range scope {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// path maps a scope to its file. Other scopes are hashed behind a "~"
// prefix, which no plain name can start with.
func (f *fileTabStorage) path(scope string) string {
	name := scope
	if !isSafeScope(scope) {
		sum := sha256.Sum256([]byte(scope))
		name = "~" + hex.EncodeToString(sum[:])
	}
	return filepath.Join(f.dir, name+".json")
}

func (f *fileTabStorage) load(scope string) (*fileTab, error) {
	data, err := os.ReadFile(f.path(scope))
	if errors.Is(err, os.ErrNotExist) {
		return &fileTab{Items: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tab file: %w", err)
	}

	tab := &fileTab{}
	if err := json.Unmarshal(data, tab); err != nil || tab.Items == nil {
		// A corrupt file is treated as an empty tab.
		return &fileTab{Items: map[string]string{}}, nil
	}
	return tab, nil
}

func (f *fileTabStorage) save(scope string, tab *fileTab) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tab.UpdatedAt = time.Now()
	data, err := json.Marshal(tab)
	if err != nil {
		return fmt.Errorf("failed to encode tab: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".tab-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tab file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write tab file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(scope)); err != nil {
		return fmt.Errorf("failed to replace tab file: %w", err)
	}
	return nil
}

// GetItem implements TabStorage.
func (f *fileTabStorage) GetItem(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScope(scope); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tab, err := f.load(scope)
	if err != nil {
		return "", false, err
	}
	value, ok := tab.Items[key]
	return value, ok, nil
}

// SetItem implements TabStorage.
func (f *fileTabStorage) SetItem(ctx context.Context, scope, key, value string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tab, err := f.load(scope)
	if err != nil {
		return err
	}
	tab.Items[key] = value
	return f.save(scope, tab)
}

// RemoveItem implements TabStorage.
func (f *fileTabStorage) RemoveItem(ctx context.Context, scope, key string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tab, err := f.load(scope)
	if err != nil {
		return err
	}
	if _, ok := tab.Items[key]; !ok {
		return nil
	}
	delete(tab.Items, key)
	return f.save(scope, tab)
}

// Clear implements TabStorage.
func (f *fileTabStorage) Clear(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(scope)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete tab file: %w", err)
	}
	return nil
}

// Touch implements TabStorage.
func (f *fileTabStorage) Touch(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	err := os.Chtimes(f.path(scope), now, now)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to touch tab file: %w", err)
	}
	return nil
}

// PurgeIdle implements TabStorage.
func (f *fileTabStorage) PurgeIdle(ctx context.Context, idle time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list storage directory: %w", err)
	}

	cutoff := time.Now().Add(-idle)
	purged := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err == nil {
			purged++
		}
	}
	return purged, nil
}
