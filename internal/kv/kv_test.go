// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

// =============================================================================
// STORE CONTRACT TESTS
// =============================================================================

func TestStore_GetSetRemove(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(KeyQuickPresets)
			require.NoError(t, err)
			assert.False(t, ok, "absent key should report ok=false")

			require.NoError(t, store.Set(KeyQuickPresets, `[{"id":"a"}]`))
			v, ok, err := store.Get(KeyQuickPresets)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"a"}]`, v)

			// Whole-value replace.
			require.NoError(t, store.Set(KeyQuickPresets, `[]`))
			v, _, _ = store.Get(KeyQuickPresets)
			assert.Equal(t, `[]`, v)

			require.NoError(t, store.Remove(KeyQuickPresets))
			_, ok, _ = store.Get(KeyQuickPresets)
			assert.False(t, ok)

			// Removing an absent key is tolerated.
			assert.NoError(t, store.Remove(KeyQuickPresets))
		})
	}
}

func TestStore_KeysArePartitioned(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(KeyQuickPresets, "1"))
			require.NoError(t, store.Set(KeyPresetUsageStats, "2"))

			a, _, _ := store.Get(KeyQuickPresets)
			b, _, _ := store.Get(KeyPresetUsageStats)
			assert.Equal(t, "1", a)
			assert.Equal(t, "2", b)
		})
	}
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Backend: BackendFile, Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{Backend: BackendSQLite, Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.Equal(t, filepath.Join(dir, "polychat.db"), s.(*SQLiteStore).Path())
	s.Close()

	s, err = Open(Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(Options{Backend: "redis"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		err := store.Set(key, "x")
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q should be rejected", key)
	}
}

func TestFileStore_WritesJSONFilePerKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyPresetCategories, `["ops"]`))

	data, err := os.ReadFile(filepath.Join(dir, "presetCategories.json"))
	require.NoError(t, err)
	assert.Equal(t, `["ops"]`, string(data))
}

func TestSQLiteStore_Keys(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set("b", "2"))
	require.NoError(t, store.Set("a", "1"))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyPresetVersionHistory, "[1]"))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	v, ok, err := store.Get(KeyPresetVersionHistory)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1]", v)
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, _, err := store.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Set("k", "v"), ErrClosed)
}

// =============================================================================
// JSON HELPER TESTS
// =============================================================================

func TestReadJSON_AbsentKeyLeavesDefault(t *testing.T) {
	store := NewMemoryStore()
	v := []string{"default"}

	assert.False(t, ReadJSON(store, KeyPresetCategories, &v, nil))
	assert.Equal(t, []string{"default"}, v)
}

func TestReadJSON_CorruptValueIsLoggedNotReturned(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"syntax error", "{not json"},
		{"wrong element type", `["ok", 5, "also ok"]`},
		{"wrong top-level type", `{"a": "b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Set(KeyPresetCategories, tt.raw))

			var buf bytes.Buffer
			logger := log.New(&buf, "", 0)
			v := []string{"default"}

			assert.False(t, ReadJSON(store, KeyPresetCategories, &v, logger))
			assert.Equal(t, []string{"default"}, v)
			assert.Contains(t, buf.String(), "KV_CORRUPT_VALUE")
		})
	}
}

func TestReadJSON_TypeMismatchLeavesStructUntouched(t *testing.T) {
	type record struct {
		Name   string   `json:"name"`
		Models []string `json:"models"`
	}
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyQuickPresets, `[{"name":"ok","models":["m"]},{"name":5,"models":"x"}]`))

	var v []record
	assert.False(t, ReadJSON(store, KeyQuickPresets, &v, nil))
	assert.Nil(t, v)
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, WriteJSON(store, KeyPresetCategories, []string{"a", "b"}, nil))

	var got []string
	assert.True(t, ReadJSON(store, KeyPresetCategories, &got, nil))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestWriteJSON_FailureIsLogged(t *testing.T) {
	store := NewMemoryStore()
	store.FailWrites = true

	var buf bytes.Buffer
	err := WriteJSON(store, KeyQuickPresets, []int{1}, log.New(&buf, "", 0))
	assert.Error(t, err)
	assert.True(t, strings.Contains(buf.String(), "KV_WRITE_FAILED"))
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestFileStore_WatchReportsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	require.NoError(t, store.Watch(ctx, 20*time.Millisecond, func(key string) {
		changed <- key
	}))

	// A write through the store itself is not reported.
	require.NoError(t, store.Set(KeyQuickPresets, "[]"))
	// A write by someone else is.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presetUsageStats.json"), []byte("{}"), 0644))

	select {
	case key := <-changed:
		assert.Equal(t, KeyPresetUsageStats, key)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	select {
	case key := <-changed:
		t.Fatalf("unexpected notification for %q", key)
	case <-time.After(200 * time.Millisecond):
	}
}
