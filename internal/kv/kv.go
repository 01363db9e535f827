// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"reflect"
)

// =============================================================================
// KEYS
// =============================================================================

// Well-known keys. Each subsystem owns exactly one key.
const (
	KeyQuickPresets         = "quickPresets"
	KeyPresetUsageStats     = "presetUsageStats"
	KeyPresetVersionHistory = "presetVersionHistory"
	KeyPresetCategories     = "presetCategories"
	KeyWindowLayoutPresets  = "windowLayoutPresets"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a synchronous string key-value store with whole-value replace.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set replaces the value for key.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Close releases resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid key")
	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("store closed")

	errWriteDisabled = errors.New("writes disabled")
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Dir is the data directory for the file backend.
	Dir string
	// SQLitePath is the database file for the sqlite backend.
	// Defaults to <Dir>/polychat.db.
	SQLitePath string
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Dir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "polychat.db")
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// ReadJSON decodes the value stored under key into v.
//
// It reports whether v was populated. An absent key, a read error or a
// corrupt value all leave v untouched and return false; the latter two are
// logged because they mean persisted data was lost. A value of the wrong
// shape counts as corrupt: decoding happens into a fresh value that is
// copied into v only when it succeeds.
func ReadJSON(s Store, key string, v any, logger *log.Logger) bool {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		logf(logger, "KV_READ_FAILED | key=%s error=non-pointer target %T", key, v)
		return false
	}

	raw, ok, err := s.Get(key)
	if err != nil {
		logf(logger, "KV_READ_FAILED | key=%s error=%v", key, err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal([]byte(raw), fresh.Interface()); err != nil {
		logf(logger, "KV_CORRUPT_VALUE | key=%s error=%v", key, err)
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

// WriteJSON encodes v and stores it under key. Failures are logged and
// reported through the return value; callers on the UI path ignore it since
// in-memory state stays correct for the session.
func WriteJSON(s Store, key string, v any, logger *log.Logger) error {
	data, err := json.Marshal(v)
	if err != nil {
		logf(logger, "KV_ENCODE_FAILED | key=%s error=%v", key, err)
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(key, string(data)); err != nil {
		logf(logger, "KV_WRITE_FAILED | key=%s error=%v", key, err)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// validKey rejects keys that would escape the data directory or collide
// with temp files.
func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || key[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
