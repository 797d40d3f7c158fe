// Package kv provides a small file-backed key-value store for runtime state
// that must survive process restarts: the active mute configuration and the
// in-flight dose sentinel. The store is a flat TOML document so operators can
// inspect and repair it by hand.
package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dosewatch/alertkit/internal/config"
)

const stateFilename = "state.toml"

// DefaultPath returns the state file location: <state_dir>/state.toml,
// falling back to the XDG default when state_dir is not configured.
func DefaultPath() string {
	if dir := config.Get("state_dir", ""); dir != "" {
		return filepath.Join(dir, stateFilename)
	}
	home, _ := os.UserHomeDir()
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "alertkit", stateFilename)
}

// Store is a persistent string-to-string map. Every Set and Delete rewrites
// the backing file, so values are durable the moment the call returns.
type Store struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// Open loads the store at path, creating an empty one if the file does not
// exist.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv store: path cannot be empty")
	}
	s := &Store{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv store: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("kv store: parse %s: %w", path, err)
	}
	return s, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores key=value and persists the file.
func (s *Store) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("kv store: key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

// Delete removes key and persists the file. Deleting an absent key is a
// no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// Keys returns all keys, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flush writes the file via a temp-file rename so a crash mid-write cannot
// leave a truncated document. Callers must hold s.mu.
func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("kv store: create directory: %w", err)
	}
	raw, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("kv store: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("kv store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("kv store: rename %s: %w", tmp, err)
	}
	return nil
}
