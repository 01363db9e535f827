// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for polychat.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - StorageConfig: Durable store backend and location
//   - PresetsConfig: History cap, recommendation count, share links, seeding
//   - BandConfig: Per-category stacking band overrides
//   - ServerConfig: Local HTTP API address and limits
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (POLYCHAT_*)
//   - ./.env, then ~/.polychat/.env
//   - ~/.polychat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := kv.Open(cfg.KVOptions())
package config
