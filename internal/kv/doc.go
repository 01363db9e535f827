// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the durable string key-value store that backs the
// preset and layout stores.
//
// Every key holds one complete JSON document and every write replaces the
// whole value, so a crash can lose the latest update but never leaves a
// half-written value behind.
//
// # Backends
//
//   - FileStore: one <key>.json file per key, atomic writes, optional
//     fsnotify watch for edits made by another process
//   - SQLiteStore: a single kv table in a pure-Go SQLite database
//   - MemoryStore: map-backed, for tests and ephemeral sessions
//
// # Usage
//
//	store, err := kv.Open(kv.Options{Backend: kv.BackendFile, Dir: dataDir})
//	var presets []preset.QuickPreset
//	kv.ReadJSON(store, kv.KeyQuickPresets, &presets, logger)
package kv
