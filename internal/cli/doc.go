// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the polychat command line.
//
// The command tree is built with cobra around an App, which owns the
// output streams, the global flags and the lazily opened stores. Every
// command returns its error; Run prints it once and maps it to an exit
// code with GetExitCode.
//
// # Commands Overview
//
//   - preset: list, search, add, edit, favorite, duplicate, reorder,
//     history, import/export, share links, recommendations, bulk actions
//   - category, template: custom categories and preset templates
//   - layer, layout: stacking bands, scripted stacking and window layouts
//   - serve: the local HTTP API (see package server)
//   - config: show, get and set configuration values
//   - doctor: health checks for config, storage and the server address
//
// Destructive commands prompt on a terminal and otherwise need --yes.
//
// All commands support --json and --yaml. Structured output always uses
// the JSONResponse envelope:
//
//	{"success": true, "data": ..., "error": null, "timestamp": "...", "command": "preset list"}
//
// # Usage
//
//	os.Exit(cli.Execute(os.Args[1:]))
package cli
