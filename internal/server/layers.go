// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
)

// errLayerNotFound is returned for ids the coordinator does not know.
var errLayerNotFound = errors.New("layer not registered")

// ============================================================================
// LAYERS
// ============================================================================

// RegisterLayerRequest registers one overlay surface.
type RegisterLayerRequest struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// LayerResponse reports a surface's current z-index.
type LayerResponse struct {
	ID       string         `json:"id"`
	Category layer.Category `json:"category"`
	Z        int            `json:"z"`
}

// LayersResponse lists registered surfaces bottom to top.
type LayersResponse struct {
	Layers []layer.Entry `json:"layers"`
}

func (s *Server) layerSnapshot() LayersResponse {
	entries := s.layers.Snapshot()
	if entries == nil {
		entries = []layer.Entry{}
	}
	return LayersResponse{Layers: entries}
}

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.layerSnapshot())
}

// handleRegisterLayer serves POST /v1/layers. Registering a known id again
// returns its current z-index.
func (s *Server) handleRegisterLayer(w http.ResponseWriter, r *http.Request) {
	var req RegisterLayerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		s.fail(w, r, fmt.Errorf("%w: layer id must not be empty", errBadRequest))
		return
	}
	cat, err := layer.ParseCategory(req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	z := s.layers.Register(id, cat)
	writeJSON(w, http.StatusOK, LayerResponse{ID: id, Category: s.categoryOf(id, cat), Z: z})
}

// categoryOf returns the category id is registered under, which differs
// from requested when a re-registration asked for another one.
func (s *Server) categoryOf(id string, requested layer.Category) layer.Category {
	for _, e := range s.layers.Snapshot() {
		if e.ID == id {
			return e.Category
		}
	}
	return requested
}

func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, e := range s.layers.Snapshot() {
		if e.ID == id {
			writeJSON(w, http.StatusOK, LayerResponse{ID: e.ID, Category: e.Category, Z: e.Z})
			return
		}
	}
	s.fail(w, r, fmt.Errorf("%w: %s", errLayerNotFound, id))
}

// handleUnregisterLayer is idempotent: unknown ids succeed.
func (s *Server) handleUnregisterLayer(w http.ResponseWriter, r *http.Request) {
	s.layers.Unregister(r.PathValue("id"))
	writeJSON(w, http.StatusOK, s.layerSnapshot())
}

func (s *Server) handleBringToFront(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.layers.IsRegistered(id) {
		s.fail(w, r, fmt.Errorf("%w: %s", errLayerNotFound, id))
		return
	}
	z := s.layers.BringToFront(id)
	writeJSON(w, http.StatusOK, LayerResponse{ID: id, Category: s.categoryOf(id, layer.Floating), Z: z})
}

// ============================================================================
// LAYOUTS
// ============================================================================

// SaveLayoutRequest stores a named window layout. With Capture set, each
// window's stack position is taken from the live layer order instead of
// the request.
type SaveLayoutRequest struct {
	Name    string          `json:"name"`
	Windows []layout.Window `json:"windows"`
	Capture bool            `json:"capture,omitempty"`
}

// LayoutResponse carries one layout.
type LayoutResponse struct {
	Layout layout.Layout `json:"layout"`
}

// LayoutsResponse lists saved layouts.
type LayoutsResponse struct {
	Layouts []layout.Layout `json:"layouts"`
}

// ApplyLayoutResponse lists where each window landed.
type ApplyLayoutResponse struct {
	Placements []layout.Placement `json:"placements"`
}

func (s *Server) layoutList() LayoutsResponse {
	list := s.layouts.List()
	if list == nil {
		list = []layout.Layout{}
	}
	return LayoutsResponse{Layouts: list}
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.layoutList())
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var req SaveLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	windows := req.Windows
	if req.Capture {
		windows = layout.Capture(windows, s.layers)
	}
	saved, err := s.layouts.Save(req.Name, windows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, LayoutResponse{Layout: saved})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.layouts.Get(r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LayoutResponse{Layout: l})
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.layouts.Delete(r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.layoutList())
}

// handleApplyLayout registers the layout's windows with the coordinator
// back to front, so the saved stacking order becomes the live one.
func (s *Server) handleApplyLayout(w http.ResponseWriter, r *http.Request) {
	placements, err := s.layouts.Apply(r.PathValue("name"), s.layers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyLayoutResponse{Placements: placements})
}
