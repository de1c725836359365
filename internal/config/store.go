package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves the AppConfig document
type Store struct {
	path string

	mu        sync.RWMutex
	current   *AppConfig
	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates a store backed by path. A missing file is not an error;
// the store simply stays not ready until Save succeeds.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, ready: make(chan struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		// keep the partial document so the edit page can show it
		s.current = &cfg
		return s, nil
	}
	cfg.ApplyDefaults()
	s.current = &cfg
	s.markReady()
	return s, nil
}

// Current returns a copy of the loaded document, or nil when none exists
func (s *Store) Current() *AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	cp.AdminIDs = append(IDList(nil), s.current.AdminIDs...)
	return &cp
}

// Ready reports whether a valid document has been loaded or saved
func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until a valid document exists or ctx is done
func (s *Store) Wait(ctx context.Context) (*AppConfig, error) {
	select {
	case <-s.ready:
		return s.Current(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Save validates cfg and writes it atomically
func (s *Store) Save(cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ApplyDefaults()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}

	s.mu.Lock()
	s.current = &cfg
	s.mu.Unlock()

	s.markReady()
	return nil
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
