// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes presets, overlay layers and window layouts as a
// local JSON HTTP API for a rendering layer.
//
// # Endpoints
//
//   - GET    /health                      - Health check
//   - GET    /stats                       - Request counters
//   - GET    /v1/presets                  - List (?sort= &q= &category= &model= &favorites=)
//   - POST   /v1/presets                  - Add one spec, an array, or {"presets": [...]}
//   - GET    /v1/presets/{id}             - One preset
//   - PATCH  /v1/presets/{id}             - Update
//   - DELETE /v1/presets/{id}             - Remove
//   - POST   /v1/presets/{id}/favorite    - Toggle favorite
//   - POST   /v1/presets/{id}/duplicate   - Duplicate
//   - POST   /v1/presets/{id}/use         - Track usage
//   - GET    /v1/presets/{id}/history     - Versions, newest first
//   - POST   /v1/presets/{id}/restore     - Restore a version
//   - GET    /v1/presets/{id}/share       - Share link
//   - POST   /v1/presets/reorder          - Move a preset
//   - POST   /v1/presets/bulk             - delete, category, favorite, duplicate
//   - GET    /v1/presets/export           - Export (?ids= &format=yaml)
//   - POST   /v1/presets/import           - Import JSON or YAML
//   - POST   /v1/share/parse              - Decode a share link
//   - GET    /v1/recommendations          - Ranked presets (?models= &limit=)
//   - GET    /v1/categories               - Categories
//   - POST   /v1/categories               - Add a custom category
//   - PUT    /v1/categories/{name}        - Rename a custom category
//   - DELETE /v1/categories/{name}        - Remove a custom category
//   - GET    /v1/templates                - Template catalog (?category=)
//   - POST   /v1/templates/{id}           - Create a preset from a template
//   - GET    /v1/layers                   - Registered surfaces, bottom to top
//   - POST   /v1/layers                   - Register {id, category}
//   - GET    /v1/layers/{id}              - One surface's z-index
//   - DELETE /v1/layers/{id}              - Unregister
//   - POST   /v1/layers/{id}/front        - Bring to front
//   - GET    /v1/layouts                  - Saved window layouts
//   - POST   /v1/layouts                  - Save a layout
//   - GET    /v1/layouts/{name}           - One layout
//   - DELETE /v1/layouts/{name}           - Delete a layout
//   - POST   /v1/layouts/{name}/apply     - Restack windows from a layout
//
// Errors use a single envelope: {"error": {"message", "type", "code"}}.
// Unknown ids map to 404, malformed input to 400, name clashes to 409 and
// attempts to change a default category to 403.
//
// # Middleware
//
// Every request passes panic recovery, security headers, request logging,
// CORS, a per-client token bucket and a body size cap, in that order.
//
// # Usage
//
//	srv := server.New(server.Options{
//		Presets: presets,
//		Layers:  layers,
//		Layouts: layouts,
//		Config:  cfg.Server,
//		Logger:  logger,
//	})
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
