// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the polychat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement (temp file, fsync, rename)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - PadRight: display-width aware padding for CLI tables
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	cell := util.PadRight(util.TruncateRunes(name, 24), 24)
package util
