// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layer decides the stacking order (z-index) of floating surfaces:
// chat windows, dropdowns, popovers, modals and toasts.
//
// Surfaces belong to a Category. Every category owns a fixed band of
// stacking values starting at its base; inside the band, the surface that
// was most recently registered or brought to front gets the highest value.
// Bands never overlap, so a modal is always above every dropdown no matter
// how the user interacts with them.
//
// # Usage
//
//	coord := layer.New(logger)
//	z := coord.Register("chat-1", layer.Floating)   // 200
//	z = coord.Register("mode-menu", layer.Dropdown) // 250
//	z = coord.BringToFront("chat-1")
//	defer coord.Unregister("chat-1")
//
// A Coordinator is created once per client and handed to every surface.
// Reset clears it between tests.
package layer
