// Package kvstore implements domain.KeyValueStore as one JSON object on disk.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/infra/fileutil"
)

var _ domain.KeyValueStore = (*Store)(nil)

// Store keeps every key in a single file.
// A sibling .lock file serialises access across processes.
type Store struct {
	lock *fileutil.Lock
	path string
}

// New returns a Store backed by path. The file is created on first Set.
func New(path string) *Store {
	return &Store{path: path, lock: fileutil.NewLock(path + ".lock")}
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.lock.Shared(func() error {
		values, err := s.load()
		if err != nil {
			return err
		}
		value, found = values[key]
		return nil
	})
	return value, found, err
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	return s.update(func(values map[string]string) { values[key] = value })
}

// Remove deletes key. Missing keys are not an error.
func (s *Store) Remove(key string) error {
	return s.update(func(values map[string]string) { delete(values, key) })
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.lock.Shared(func() error {
		values, err := s.load()
		if err != nil {
			return err
		}
		keys = slices.Sorted(maps.Keys(values))
		return nil
	})
	return keys, err
}

func (s *Store) update(fn func(map[string]string)) error {
	return s.lock.Exclusive(func() error {
		values, err := s.load()
		if err != nil {
			return err
		}
		fn(values)

		content, err := json.MarshalIndent(struct {
			Values map[string]string `json:"values"`
		}{values}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal store: %w", err)
		}
		return fileutil.WriteAtomic(s.path, content, 0o600)
	})
}

// load reads the file. A missing or empty file is an empty store.
func (s *Store) load() (map[string]string, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(content) == 0) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var file struct {
		Values map[string]string `json:"values"`
	}
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse store: %w", err)
	}
	if file.Values == nil {
		file.Values = map[string]string{}
	}
	return file.Values, nil
}
