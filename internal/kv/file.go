// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/polychat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps each key in its own <key>.json file under Dir.
type FileStore struct {
	// Dir is the data directory. Default: ~/.polychat/data/
	Dir string

	mu      sync.Mutex
	written map[string]string // last value this process wrote, per key
	closed  bool
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileStore{
		Dir:     dir,
		written: make(map[string]string),
	}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", false, ErrClosed
	}

	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := util.AtomicWriteFile(s.filePath(key), []byte(value), 0644); err != nil {
		return err
	}
	s.written[key] = value
	return nil
}

// Remove implements Store.
func (s *FileStore) Remove(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	delete(s.written, key)
	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

// =============================================================================
// WATCHING
// =============================================================================

// DefaultWatchDebounce is how long a key must stay quiet before a change
// is reported.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch reports keys whose files were changed by another process.
//
// Writes made through this FileStore are not reported. fn runs on the
// watcher goroutine. Watching stops when ctx is cancelled.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, fn func(key string)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := watcher.Add(s.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.Dir, err)
	}

	var (
		pendingMu sync.Mutex
		pending   = make(map[string]time.Time)
	)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				key, ok := keyFromPath(event.Name)
				if !ok {
					continue
				}
				pendingMu.Lock()
				pending[key] = time.Now()
				pendingMu.Unlock()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	go func() {
		tick := debounce / 2
		if tick <= 0 {
			tick = debounce
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				var ready []string
				pendingMu.Lock()
				for key, at := range pending {
					if now.Sub(at) >= debounce {
						ready = append(ready, key)
						delete(pending, key)
					}
				}
				pendingMu.Unlock()

				for _, key := range ready {
					if s.changedExternally(key) {
						fn(key)
					}
				}
			}
		}
	}()

	return nil
}

// changedExternally reports whether the file for key differs from the last
// value this store wrote.
func (s *FileStore) changedExternally(key string) bool {
	data, err := os.ReadFile(s.filePath(key))
	current := ""
	if err == nil {
		current = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	last, wrote := s.written[key]
	if wrote && last == current {
		return false
	}
	return true
}

func keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}
