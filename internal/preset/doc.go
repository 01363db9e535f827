// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preset manages quick presets: named, reusable selections of AI
// model identifiers.
//
// A Store owns four independently persisted pieces of state, each under its
// own kv key:
//
//   - the ordered preset collection (kv.KeyQuickPresets)
//   - usage statistics per preset id (kv.KeyPresetUsageStats)
//   - the append-only version history (kv.KeyPresetVersionHistory)
//   - user-defined categories (kv.KeyPresetCategories)
//
// Every mutating Store method persists immediately and returns a fresh copy
// of the collection, so callers can diff the old and new slices without
// worrying about aliasing. Usage counts are kept out of the preset records
// and merged in on the way out (see WithUsage).
//
// The read-side helpers (Sort, Search, FilterModels, Recommend) are plain
// functions over a collection so they can be tested without a Store.
//
// # Usage
//
//	store := preset.NewStore(preset.Options{KV: kvStore, Logger: logger})
//	presets := store.Add(preset.Spec{Name: "Review", Models: []string{"openai/gpt-4o"}})
//	store.TrackUsage(presets[0].ID)
//	recs := store.Recommendations([]string{"openai/gpt-4o"}, 3)
package preset
