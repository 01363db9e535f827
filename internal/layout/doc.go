// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout saves and restores named arrangements of chat windows.
//
// A Layout records each window's geometry and its position in the stack.
// Applying a layout replays the stack onto a layer coordinator so that the
// windows come back in the same front-to-back order.
//
// # Usage
//
//	store := layout.NewStore(layout.Options{KV: kvStore})
//	store.Save("review", windows)
//	placements, err := store.Apply("review", coord)
package layout
