// Package settings persists user preferences as a flat YAML key-value
// document and reloads it when the file is edited externally.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/clipmaster/internal/checksum"
)

// Store is a concurrency-safe key-value store. An empty path keeps values in
// memory only.
type Store struct {
	mu        sync.RWMutex
	path      string
	values    map[string]any
	lastSum   string
	logger    *slog.Logger
	listeners []func()
}

// Open loads path if it exists. A missing file is not an error.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		values: make(map[string]any),
		logger: logger,
	}
	if path == "" {
		return s, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: resolve path: %w", err)
	}
	s.path = abs

	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", abs, err)
	}
	values, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", abs, err)
	}
	s.values = values
	s.lastSum = checksum.Sum(data)
	return s, nil
}

// Path returns the absolute backing file path, or "" for a memory store.
func (s *Store) Path() string { return s.path }

// OnReload registers fn to run after an external edit has been loaded.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the string stored under key.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Float returns a numeric value as float64.
func (s *Store) Float(key string) (float64, bool) {
	v, ok := s.get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Int returns an integral value.
func (s *Store) Int(key string) (int, bool) {
	v, ok := s.get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func (s *Store) Bool(key string) (bool, bool) {
	v, ok := s.get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Strings returns a list of strings. Non-string members make the value
// unreadable.
func (s *Store) Strings(key string) ([]string, bool) {
	v, ok := s.get(key)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// Decode unmarshals a structured value into out. It reports false when the
// key is absent.
func (s *Store) Decode(key string, out any) (bool, error) {
	v, ok := s.get(key)
	if !ok {
		return false, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return true, fmt.Errorf("settings: decode %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("settings: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key and writes the file.
func (s *Store) Set(key string, v any) error {
	return s.SetMany(map[string]any{key: v})
}

// SetMany stores several keys in a single write.
func (s *Store) SetMany(kv map[string]any) error {
	normalized := make(map[string]any, len(kv))
	for k, v := range kv {
		n, err := normalize(v)
		if err != nil {
			return fmt.Errorf("settings: set %s: %w", k, err)
		}
		normalized[k] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, normalized)
	return s.flushLocked()
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

// All returns a shallow copy of every value.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Reload re-reads the file and notifies listeners when its content differs
// from what this store last read or wrote.
func (s *Store) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	sum := checksum.Sum(data)
	s.mu.Lock()
	if sum == s.lastSum {
		s.mu.Unlock()
		return false, nil
	}
	values, err := decode(data)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	s.values = values
	s.lastSum = sum
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true, nil
}

// flushLocked writes the document atomically. Caller holds mu.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}
	s.lastSum = checksum.Sum(data)
	return nil
}

// writeAtomic writes content: tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".clipmaster-tmp-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("settings: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	success = true
	return nil
}

func decode(data []byte) (map[string]any, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]any)
	}
	return values, nil
}

// normalize round-trips v through YAML so stored values have the same shape
// as values read back from disk.
func normalize(v any) (any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
