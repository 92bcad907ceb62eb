package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// tableLock guards a read-modify-write cycle on one table file. It is a
// no-op unless the store was opened with AtomicitySerialized.
type tableLock struct {
	enabled bool
	mu      sync.Mutex
}

func (l *tableLock) Lock() {
	if l.enabled {
		l.mu.Lock()
	}
}

func (l *tableLock) Unlock() {
	if l.enabled {
		l.mu.Unlock()
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}
	return nil
}

// writeJSON replaces path with the indented encoding of v. The document is
// written to a temp file in the same directory and renamed over the target,
// so readers see either the old table or the new one.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	return nil
}

func fileAtomicity(a Atomicity) (Atomicity, error) {
	switch a {
	case "", AtomicityNone:
		return AtomicityNone, nil
	case AtomicitySerialized:
		return a, nil
	default:
		return "", fmt.Errorf("file store does not support atomicity %q", a)
	}
}
