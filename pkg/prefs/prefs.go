package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Store is a small persistent key/value store for local UI preferences.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}

// Open selects a backend by name ("yaml" or "sqlite").
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "yaml":
		return NewYAMLStore(path)
	case "sqlite":
		dsn, err := SQLiteDSNForFile(path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(dsn)
	default:
		return nil, errors.Errorf("unknown preferences backend %q", backend)
	}
}

// YAMLStore keeps preferences in a flat YAML map, rewritten on every Set.
type YAMLStore struct {
	path string
	mu   sync.Mutex
	vals map[string]string
}

var _ Store = &YAMLStore{}

func NewYAMLStore(path string) (*YAMLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("yaml preferences: empty path")
	}
	s := &YAMLStore{path: path, vals: map[string]string{}}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "yaml preferences: read")
	}
	if err := yaml.Unmarshal(b, &s.vals); err != nil {
		return nil, errors.Wrap(err, "yaml preferences: parse")
	}
	if s.vals == nil {
		s.vals = map[string]string{}
	}
	return s, nil
}

func (s *YAMLStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	return v, ok, nil
}

func (s *YAMLStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
	b, err := yaml.Marshal(s.vals)
	if err != nil {
		return errors.Wrap(err, "yaml preferences: encode")
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "yaml preferences: create dir")
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return errors.Wrap(err, "yaml preferences: write")
	}
	return nil
}

func (s *YAMLStore) Close() error { return nil }

// MemoryStore is a non-persistent Store.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{vals: map[string]string{}} }

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
	return nil
}

func (s *MemoryStore) Close() error { return nil }
