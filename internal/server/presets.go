// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/polychat/internal/preset"
)

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// PresetsResponse carries the whole collection, usage filled in.
type PresetsResponse struct {
	Presets []preset.QuickPreset `json:"presets"`
}

// PresetResponse carries a single preset.
type PresetResponse struct {
	Preset preset.QuickPreset `json:"preset"`
}

// AddRequest is the batch form of POST /v1/presets. A bare spec object or a
// JSON array of specs is accepted too.
type AddRequest struct {
	Presets []preset.Spec `json:"presets"`
}

// NameRequest carries an optional new name.
type NameRequest struct {
	Name string `json:"name"`
}

// ReorderRequest moves the preset at From to To.
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Bulk actions accepted by POST /v1/presets/bulk.
const (
	BulkDelete    = "delete"
	BulkCategory  = "category"
	BulkFavorite  = "favorite"
	BulkDuplicate = "duplicate"
)

// BulkRequest applies Action to every id. Category is only read by the
// category action; an empty value clears it.
type BulkRequest struct {
	Action   string   `json:"action"`
	IDs      []string `json:"ids"`
	Category string   `json:"category,omitempty"`
}

// UsageResponse reports one preset's usage after tracking it.
type UsageResponse struct {
	ID         string     `json:"id"`
	UsageCount int        `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// HistoryResponse lists versions newest first.
type HistoryResponse struct {
	Versions []preset.Version `json:"versions"`
}

// RestoreRequest names the version to restore.
type RestoreRequest struct {
	VersionID string `json:"versionId"`
}

// ImportResponse reports how many presets an import added.
type ImportResponse struct {
	Imported int                  `json:"imported"`
	Presets  []preset.QuickPreset `json:"presets"`
}

// ShareResponse carries a share link.
type ShareResponse struct {
	URL string `json:"url"`
}

// ParseShareRequest holds a share link or bare payload. With Create set the
// decoded preset is also added to the collection.
type ParseShareRequest struct {
	URL    string `json:"url"`
	Create bool   `json:"create,omitempty"`
}

// ParseShareResponse is the decoded share content, plus the collection when
// it was created.
type ParseShareResponse struct {
	Preset  preset.Shared        `json:"preset"`
	Presets []preset.QuickPreset `json:"presets,omitempty"`
}

// RecommendationsResponse lists ranked presets.
type RecommendationsResponse struct {
	Recommendations []preset.Recommendation `json:"recommendations"`
}

// CategoriesResponse lists categories, defaults first.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Custom     []string `json:"custom"`
}

// TemplatesResponse lists templates.
type TemplatesResponse struct {
	Templates []preset.Template `json:"templates"`
}

// ============================================================================
// PRESET COLLECTION
// ============================================================================

// handleListPresets serves GET /v1/presets.
//
// Query parameters, applied in this order: category, favorites=true,
// model (glob), q (search), sort.
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opt, err := preset.ParseSortOption(q.Get("sort"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	list := s.presets.Presets()
	if cat := q.Get("category"); cat != "" {
		list = preset.FilterCategory(list, cat)
	}
	if fav, _ := strconv.ParseBool(q.Get("favorites")); fav {
		list = onlyFavorites(list)
	}
	if pattern := q.Get("model"); pattern != "" {
		if list, err = preset.FilterModels(list, pattern); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	list = preset.Search(list, q.Get("q"))
	list = preset.Sort(list, opt, s.presets.Usage())

	writeJSON(w, http.StatusOK, PresetsResponse{Presets: nonNil(list)})
}

func onlyFavorites(list []preset.QuickPreset) []preset.QuickPreset {
	var out []preset.QuickPreset
	for _, p := range list {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

// handleAddPresets serves POST /v1/presets. Nothing is added unless every
// spec is valid.
func (s *Server) handleAddPresets(w http.ResponseWriter, r *http.Request) {
	specs, err := decodeSpecs(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(specs) == 0 {
		s.fail(w, r, fmt.Errorf("%w: no presets given", errBadRequest))
		return
	}
	for i, spec := range specs {
		if err := spec.Validate(); err != nil {
			s.fail(w, r, fmt.Errorf("preset %d: %w", i, err))
			return
		}
	}
	writeJSON(w, http.StatusCreated, PresetsResponse{Presets: s.presets.Add(specs...)})
}

func decodeSpecs(r *http.Request) ([]preset.Spec, error) {
	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		return nil, err
	}

	strict := func(v any) error {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var specs []preset.Spec
		if err := strict(&specs); err != nil {
			return nil, err
		}
		return specs, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, batch := probe["presets"]; batch {
		var req AddRequest
		if err := strict(&req); err != nil {
			return nil, err
		}
		return req.Presets, nil
	}
	var spec preset.Spec
	if err := strict(&spec); err != nil {
		return nil, err
	}
	return []preset.Spec{spec}, nil
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := s.presets.Get(id)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", preset.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, PresetResponse{Preset: p})
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	var patch preset.Patch
	if err := decodeJSON(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPresets(w, r, http.StatusOK)(s.presets.Update(r.PathValue("id"), patch))
}

func (s *Server) handleRemovePreset(w http.ResponseWriter, r *http.Request) {
	s.respondPresets(w, r, http.StatusOK)(s.presets.Remove(r.PathValue("id")))
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	s.respondPresets(w, r, http.StatusOK)(s.presets.ToggleFavorite(r.PathValue("id")))
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPresets(w, r, http.StatusCreated)(s.presets.Duplicate(r.PathValue("id"), strings.TrimSpace(req.Name)))
}

// handleTrackUsage counts ids that are not in the collection as well, so a
// rendering layer can report uses of presets it has cached.
func (s *Server) handleTrackUsage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stats := s.presets.TrackUsage(id)
	resp := UsageResponse{ID: id, UsageCount: stats.Count(id)}
	if t, ok := stats.LastUsed(id); ok {
		resp.LastUsedAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPresets(w, r, http.StatusOK)(s.presets.Reorder(req.From, req.To))
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var list []preset.QuickPreset
	switch strings.ToLower(req.Action) {
	case BulkDelete:
		list = s.presets.BulkDelete(req.IDs)
	case BulkCategory:
		list = s.presets.BulkSetCategory(req.IDs, req.Category)
	case BulkFavorite:
		list = s.presets.BulkToggleFavorite(req.IDs)
	case BulkDuplicate:
		list = s.presets.BulkDuplicate(req.IDs)
	default:
		s.fail(w, r, fmt.Errorf("%w: unknown bulk action %q", errBadRequest, req.Action))
		return
	}
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: nonNil(list)})
}

// respondPresets adapts the ([]QuickPreset, error) results of the store's
// mutators into a response.
func (s *Server) respondPresets(w http.ResponseWriter, r *http.Request, status int) func([]preset.QuickPreset, error) {
	return func(list []preset.QuickPreset, err error) {
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, status, PresetsResponse{Presets: nonNil(list)})
	}
}

// ============================================================================
// HISTORY
// ============================================================================

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	versions := s.presets.History(r.PathValue("id"))
	if versions == nil {
		versions = []preset.Version{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Versions: versions})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPresets(w, r, http.StatusOK)(s.presets.Restore(r.PathValue("id"), req.VersionID))
}

// ============================================================================
// IMPORT / EXPORT / SHARING
// ============================================================================

// handleExport serves GET /v1/presets/export?ids=a,b&format=yaml.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ids := splitList(r.URL.Query().Get("ids"))

	var (
		data        []byte
		err         error
		contentType = "application/json"
		filename    = "polychat-presets.json"
	)
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		data, err = s.presets.Export(ids)
	case "yaml", "yml":
		data, err = s.presets.ExportYAML(ids)
		contentType = "application/yaml"
		filename = "polychat-presets.yaml"
	default:
		err = fmt.Errorf("%w: unknown export format %q", errBadRequest, format)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport serves POST /v1/presets/import. YAML is read when the
// content type or ?format says so.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	parse := preset.ParseImport
	if isYAML(r) {
		parse = preset.ParseImportYAML
	}
	items, err := parse(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	presets, added := s.presets.Import(items)
	writeJSON(w, http.StatusOK, ImportResponse{
		Imported: added,
		Presets:  nonNil(presets),
	})
}

func isYAML(r *http.Request) bool {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "yaml" || format == "yml" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml")
}

// handleShare serves GET /v1/presets/{id}/share?base=.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	if base == "" {
		base = s.shareURL
	}
	link, err := s.presets.ShareURL(base, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{URL: link})
}

func (s *Server) handleParseShare(w http.ResponseWriter, r *http.Request) {
	var req ParseShareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	shared, err := preset.ParseShareURL(req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !req.Create {
		writeJSON(w, http.StatusOK, ParseShareResponse{Preset: shared})
		return
	}
	spec := shared.Spec()
	if err := spec.Validate(); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", preset.ErrInvalidShare, err))
		return
	}
	writeJSON(w, http.StatusCreated, ParseShareResponse{Preset: shared, Presets: s.presets.Add(spec)})
}

// ============================================================================
// RECOMMENDATIONS
// ============================================================================

// handleRecommendations serves GET /v1/recommendations?models=a,b&limit=3.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := s.recLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}

	recs := s.presets.Recommendations(splitList(r.URL.Query().Get("models")), limit)
	if recs == nil {
		recs = []preset.Recommendation{}
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs})
}

// ============================================================================
// CATEGORIES
// ============================================================================

func (s *Server) categories() CategoriesResponse {
	custom := s.presets.CustomCategories()
	if custom == nil {
		custom = []string{}
	}
	return CategoriesResponse{Categories: s.presets.Categories(), Custom: custom}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.categories())
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.presets.AddCategory(req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.categories())
}

// handleRenameCategory renames a custom category and returns the presets,
// which are relabelled along with it.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPresets(w, r, http.StatusOK)(s.presets.RenameCategory(r.PathValue("name"), req.Name))
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.presets.RemoveCategory(r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.categories())
}

// ============================================================================
// TEMPLATES
// ============================================================================

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	var list []preset.Template
	if cat := r.URL.Query().Get("category"); cat != "" {
		list = preset.TemplatesIn(preset.TemplateCategory(strings.ToLower(cat)))
	} else {
		list = preset.Templates()
	}
	if list == nil {
		list = []preset.Template{}
	}
	writeJSON(w, http.StatusOK, TemplatesResponse{Templates: list})
}

func (s *Server) handleCreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.presets.CreateFromTemplate(r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PresetResponse{Preset: p})
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

func nonNil(list []preset.QuickPreset) []preset.QuickPreset {
	if list == nil {
		return []preset.QuickPreset{}
	}
	return list
}
