// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
	"github.com/jeranaias/polychat/internal/preset"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var discard = log.New(io.Discard, "", 0)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, config.ServerConfig{RateLimit: 10000, RateBurst: 10000})
}

func newTestServerWith(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	n := 0
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStore()
	presets := preset.NewStore(preset.Options{
		KV:     store,
		Logger: discard,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	return New(Options{
		Presets: presets,
		Layers:  layer.New(discard),
		Layouts: layout.NewStore(layout.Options{KV: store, Logger: discard}),
		Config:  cfg,
		Logger:  discard,
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func presetsOf(t *testing.T, w *httptest.ResponseRecorder) []preset.QuickPreset {
	t.Helper()
	return decode[PresetsResponse](t, w).Presets
}

func names(list []preset.QuickPreset) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Name
	}
	return out
}

func mustAdd(t *testing.T, s *Server, name string, models ...string) preset.QuickPreset {
	t.Helper()
	body, err := json.Marshal(preset.Spec{Name: name, Models: models})
	require.NoError(t, err)
	w := do(t, s, "POST", "/v1/presets", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	list := presetsOf(t, w)
	return list[len(list)-1]
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[ErrorBody](t, w)
	assert.Equal(t, status, body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
	assert.Equal(t, errorType(status), body.Error.Type)
}

// =============================================================================
// HEALTH AND STATS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	mustAdd(t, s, "Pair", "openai/gpt-4o", "anthropic/claude-sonnet-4")

	w := do(t, s, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, 1, resp.Presets)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHandleStats_CountsErrors(t *testing.T) {
	s := newTestServer(t)
	do(t, s, "GET", "/health", "")
	do(t, s, "GET", "/v1/presets/missing", "")

	w := do(t, s, "GET", "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	snap := decode[StatsSnapshot](t, w)
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.ClientErrors)
	assert.Zero(t, snap.ServerErrors)
}

func TestNew_FillsDefaults(t *testing.T) {
	s := New(Options{Logger: discard})

	assert.Equal(t, config.Default().Server.Addr, s.Addr())
	assert.Equal(t, int64(DefaultMaxBodyBytes), s.cfg.MaxBodyBytes)
	assert.Equal(t, preset.DefaultRecommendationLimit, s.recLimit)
	assert.Equal(t, http.StatusOK, do(t, s, "GET", "/v1/layers", "").Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/v1/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, "PUT", "/v1/presets", "{}").Code)
}

// =============================================================================
// PRESET TESTS
// =============================================================================

func TestPresets_AddForms(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/v1/presets", `{"name":"One","models":["openai/gpt-4o"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"One"}, names(presetsOf(t, w)))

	w = do(t, s, "POST", "/v1/presets", `[{"name":"Two","models":["a"]},{"name":"Three","models":["b"]}]`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"One", "Two", "Three"}, names(presetsOf(t, w)))

	w = do(t, s, "POST", "/v1/presets", `{"presets":[{"name":"Four","models":["c"]}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	list := presetsOf(t, w)
	assert.Equal(t, []string{"One", "Two", "Three", "Four"}, names(list))
	assert.Equal(t, preset.SourceCustom, list[0].SourceType)
	assert.False(t, list[0].IsFavorite)
}

func TestPresets_AddRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"no models", `{"name":"x","models":[]}`},
		{"blank name", `{"name":"  ","models":["a"]}`},
		{"unknown field", `{"name":"x","models":["a"],"colour":"red"}`},
		{"empty body", ``},
		{"not json", `name=x`},
		{"empty batch", `{"presets":[]}`},
		{"one bad in batch", `[{"name":"ok","models":["a"]},{"name":"bad","models":[]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, do(t, s, "POST", "/v1/presets", tt.body), http.StatusBadRequest)
		})
	}

	assert.Zero(t, s.presets.Len(), "rejected requests must not add anything")
}

func TestPresets_GetUpdateRemove(t *testing.T) {
	s := newTestServer(t)
	p := mustAdd(t, s, "Draft", "openai/gpt-4o")

	w := do(t, s, "GET", "/v1/presets/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Draft", decode[PresetResponse](t, w).Preset.Name)

	assertError(t, do(t, s, "GET", "/v1/presets/missing", ""), http.StatusNotFound)

	w = do(t, s, "PATCH", "/v1/presets/"+p.ID, `{"name":"Final","category":"coding"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := presetsOf(t, w)
	assert.Equal(t, "Final", list[0].Name)
	assert.Equal(t, "coding", list[0].Category)

	assertError(t, do(t, s, "PATCH", "/v1/presets/"+p.ID, `{"name":""}`), http.StatusBadRequest)
	assertError(t, do(t, s, "PATCH", "/v1/presets/"+p.ID, `{"models":[]}`), http.StatusBadRequest)
	assertError(t, do(t, s, "PATCH", "/v1/presets/missing", `{"name":"x"}`), http.StatusNotFound)

	w = do(t, s, "DELETE", "/v1/presets/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, presetsOf(t, w))
	assert.JSONEq(t, "[]", string(mustField(t, w.Body.Bytes(), "presets")))

	assertError(t, do(t, s, "DELETE", "/v1/presets/"+p.ID, ""), http.StatusNotFound)
}

func TestPresets_ListQuery(t *testing.T) {
	s := newTestServer(t)
	alpha := mustAdd(t, s, "Alpha", "openai/gpt-4o")
	beta := mustAdd(t, s, "beta", "anthropic/claude-sonnet-4")
	mustAdd(t, s, "Gamma", "openai/o1/preview")

	do(t, s, "POST", "/v1/presets/"+beta.ID+"/use", "")
	do(t, s, "POST", "/v1/presets/"+beta.ID+"/use", "")
	do(t, s, "POST", "/v1/presets/"+alpha.ID+"/favorite", "")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Alpha", "beta", "Gamma"}},
		{"?sort=usage", []string{"beta", "Alpha", "Gamma"}},
		{"?sort=name", []string{"Alpha", "beta", "Gamma"}},
		{"?sort=favorites", []string{"Alpha", "beta", "Gamma"}},
		{"?q=ALP", []string{"Alpha"}},
		{"?q=claude", []string{"beta"}},
		{"?model=openai/*", []string{"Alpha"}},
		{"?model=openai/**", []string{"Alpha", "Gamma"}},
		{"?favorites=true", []string{"Alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, s, "GET", "/v1/presets"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, names(presetsOf(t, w)))
		})
	}

	w := do(t, s, "GET", "/v1/presets?sort=usage", "")
	assert.Equal(t, 2, presetsOf(t, w)[0].UsageCount)

	assertError(t, do(t, s, "GET", "/v1/presets?sort=bogus", ""), http.StatusBadRequest)
}

func TestPresets_FavoriteDuplicateUse(t *testing.T) {
	s := newTestServer(t)
	p := mustAdd(t, s, "Base", "a", "b")

	w := do(t, s, "POST", "/v1/presets/"+p.ID+"/favorite", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, presetsOf(t, w)[0].IsFavorite)

	w = do(t, s, "POST", "/v1/presets/"+p.ID+"/duplicate", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	list := presetsOf(t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "Base (Copy)", list[1].Name)
	assert.False(t, list[1].IsFavorite)
	assert.True(t, list[1].IsModified)

	w = do(t, s, "POST", "/v1/presets/"+p.ID+"/duplicate", `{"name":"Named"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Named", presetsOf(t, w)[2].Name)

	assertError(t, do(t, s, "POST", "/v1/presets/missing/duplicate", ""), http.StatusNotFound)
	assertError(t, do(t, s, "POST", "/v1/presets/missing/favorite", ""), http.StatusNotFound)

	for want := 1; want <= 2; want++ {
		w = do(t, s, "POST", "/v1/presets/"+p.ID+"/use", "")
		require.Equal(t, http.StatusOK, w.Code)
		usage := decode[UsageResponse](t, w)
		assert.Equal(t, want, usage.UsageCount)
		assert.NotNil(t, usage.LastUsedAt)
	}
}

func TestPresets_Reorder(t *testing.T) {
	s := newTestServer(t)
	mustAdd(t, s, "A", "m")
	mustAdd(t, s, "B", "m")
	mustAdd(t, s, "C", "m")

	w := do(t, s, "POST", "/v1/presets/reorder", `{"from":0,"to":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"B", "C", "A"}, names(presetsOf(t, w)))

	assertError(t, do(t, s, "POST", "/v1/presets/reorder", `{"from":0,"to":3}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/presets/reorder", `{"from":-1,"to":0}`), http.StatusBadRequest)
}

func TestPresets_Bulk(t *testing.T) {
	s := newTestServer(t)
	a := mustAdd(t, s, "A", "m")
	b := mustAdd(t, s, "B", "m")
	c := mustAdd(t, s, "C", "m")

	body := fmt.Sprintf(`{"action":"category","ids":[%q,%q],"category":"research"}`, a.ID, c.ID)
	w := do(t, s, "POST", "/v1/presets/bulk", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := presetsOf(t, w)
	assert.Equal(t, "research", list[0].Category)
	assert.Empty(t, list[1].Category)
	assert.Equal(t, "research", list[2].Category)

	w = do(t, s, "POST", "/v1/presets/bulk", fmt.Sprintf(`{"action":"favorite","ids":[%q]}`, b.ID))
	assert.True(t, presetsOf(t, w)[1].IsFavorite)

	w = do(t, s, "POST", "/v1/presets/bulk", fmt.Sprintf(`{"action":"duplicate","ids":[%q,%q]}`, c.ID, a.ID))
	assert.Equal(t, []string{"A", "B", "C", "C (Copy)", "A (Copy)"}, names(presetsOf(t, w)))

	w = do(t, s, "POST", "/v1/presets/bulk", fmt.Sprintf(`{"action":"delete","ids":[%q,"missing"]}`, b.ID))
	assert.Equal(t, []string{"A", "C", "C (Copy)", "A (Copy)"}, names(presetsOf(t, w)))

	assertError(t, do(t, s, "POST", "/v1/presets/bulk", `{"action":"explode","ids":[]}`), http.StatusBadRequest)
}

func TestPresets_HistoryRestore(t *testing.T) {
	s := newTestServer(t)
	p := mustAdd(t, s, "First", "a")
	do(t, s, "PATCH", "/v1/presets/"+p.ID, `{"name":"Second"}`)

	w := do(t, s, "GET", "/v1/presets/"+p.ID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	versions := decode[HistoryResponse](t, w).Versions
	require.Len(t, versions, 2)
	assert.Equal(t, "Second", versions[0].Name)
	assert.Equal(t, preset.ChangeRenamed, versions[0].ChangeType)
	assert.Equal(t, "First", versions[1].Name)

	w = do(t, s, "POST", "/v1/presets/"+p.ID+"/restore", fmt.Sprintf(`{"versionId":%q}`, versions[1].ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "First", presetsOf(t, w)[0].Name)

	assertError(t, do(t, s, "POST", "/v1/presets/"+p.ID+"/restore", `{"versionId":"nope"}`), http.StatusNotFound)

	w = do(t, s, "GET", "/v1/presets/missing/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[HistoryResponse](t, w).Versions)
}

// =============================================================================
// IMPORT / EXPORT / SHARE TESTS
// =============================================================================

func TestExportImport_JSON(t *testing.T) {
	s := newTestServer(t)
	a := mustAdd(t, s, "A", "openai/gpt-4o")
	mustAdd(t, s, "B", "anthropic/claude-sonnet-4")

	w := do(t, s, "GET", "/v1/presets/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "polychat-presets.json")
	env := decode[preset.ExportEnvelope](t, w)
	assert.Equal(t, preset.ExportVersion, env.Version)
	assert.Len(t, env.Presets, 2)

	w = do(t, s, "GET", "/v1/presets/export?ids="+a.ID+",missing", "")
	assert.Len(t, decode[preset.ExportEnvelope](t, w).Presets, 1)

	exported, err := json.Marshal(env)
	require.NoError(t, err)
	w = do(t, s, "POST", "/v1/presets/import", string(exported))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ImportResponse](t, w)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, []string{"A", "B", "A", "B"}, names(resp.Presets))
	assert.NotEqual(t, resp.Presets[0].ID, resp.Presets[2].ID)

	assertError(t, do(t, s, "POST", "/v1/presets/import", `{"version":"1.0"}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/presets/import", `not json`), http.StatusBadRequest)
	assertError(t, do(t, s, "GET", "/v1/presets/export?format=xml", ""), http.StatusBadRequest)
	assert.Equal(t, 4, s.presets.Len())
}

func TestExportImport_YAML(t *testing.T) {
	s := newTestServer(t)
	mustAdd(t, s, "A", "openai/gpt-4o")

	w := do(t, s, "GET", "/v1/presets/export?format=yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "name: A")

	req := httptest.NewRequest("POST", "/v1/presets/import", bytes.NewReader(w.Body.Bytes()))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[ImportResponse](t, rec).Imported)

	w = do(t, s, "POST", "/v1/presets/import?format=yaml", "presets: nope")
	assertError(t, w, http.StatusBadRequest)
}

func TestShare_LinkAndParse(t *testing.T) {
	s := newTestServer(t)
	p := mustAdd(t, s, "Shared", "openai/gpt-4o", "google/gemini-2.5-pro")

	w := do(t, s, "GET", "/v1/presets/"+p.ID+"/share", "")
	require.Equal(t, http.StatusOK, w.Code)
	link := decode[ShareResponse](t, w).URL
	assert.True(t, strings.HasPrefix(link, config.Default().Presets.ShareBaseURL+"#preset="), link)

	w = do(t, s, "GET", "/v1/presets/"+p.ID+"/share?base=https://chat.example.com/app", "")
	assert.True(t, strings.HasPrefix(decode[ShareResponse](t, w).URL, "https://chat.example.com/app#preset="))

	w = do(t, s, "POST", "/v1/share/parse", fmt.Sprintf(`{"url":%q}`, link))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	parsed := decode[ParseShareResponse](t, w)
	assert.Equal(t, "Shared", parsed.Preset.Name)
	assert.Equal(t, p.Models, parsed.Preset.Models)
	assert.Nil(t, parsed.Presets)
	assert.Equal(t, 1, s.presets.Len())

	w = do(t, s, "POST", "/v1/share/parse", fmt.Sprintf(`{"url":%q,"create":true}`, link))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"Shared", "Shared"}, names(decode[ParseShareResponse](t, w).Presets))

	assertError(t, do(t, s, "POST", "/v1/share/parse", `{"url":"https://x.test/#preset=%%%"}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/share/parse", `{"url":""}`), http.StatusBadRequest)
	assertError(t, do(t, s, "GET", "/v1/presets/missing/share", ""), http.StatusNotFound)
}

// =============================================================================
// RECOMMENDATION TESTS
// =============================================================================

func TestRecommendations(t *testing.T) {
	s := newTestServer(t)
	mustAdd(t, s, "Overlap", "openai/gpt-4o", "anthropic/claude-sonnet-4")
	mustAdd(t, s, "Other", "google/gemini-2.5-pro")

	w := do(t, s, "GET", "/v1/recommendations?models=openai/gpt-4o", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	recs := decode[RecommendationsResponse](t, w).Recommendations
	require.Len(t, recs, 1)
	assert.Equal(t, "Overlap", recs[0].Preset.Name)
	assert.Equal(t, preset.SignalSimilar, recs[0].Signal)

	w = do(t, s, "GET", "/v1/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(mustField(t, w.Body.Bytes(), "recommendations")))

	assertError(t, do(t, s, "GET", "/v1/recommendations?limit=0", ""), http.StatusBadRequest)
	assertError(t, do(t, s, "GET", "/v1/recommendations?limit=abc", ""), http.StatusBadRequest)
}

func mustField(t *testing.T, body []byte, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	v, ok := m[key]
	require.True(t, ok, "missing %q in %s", key, body)
	return v
}

// =============================================================================
// CATEGORY AND TEMPLATE TESTS
// =============================================================================

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/v1/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[CategoriesResponse](t, w)
	assert.Equal(t, preset.DefaultCategories(), resp.Categories)
	assert.Empty(t, resp.Custom)

	w = do(t, s, "POST", "/v1/categories", `{"name":"Ops"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"Ops"}, decode[CategoriesResponse](t, w).Custom)

	assertError(t, do(t, s, "POST", "/v1/categories", `{"name":"ops"}`), http.StatusConflict)
	assertError(t, do(t, s, "POST", "/v1/categories", `{"name":"Coding"}`), http.StatusConflict)
	assertError(t, do(t, s, "POST", "/v1/categories", `{"name":" "}`), http.StatusBadRequest)

	p := mustAdd(t, s, "Tagged", "m")
	do(t, s, "PATCH", "/v1/presets/"+p.ID, `{"category":"Ops"}`)

	w = do(t, s, "PUT", "/v1/categories/Ops", `{"name":"Platform"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Platform", presetsOf(t, w)[0].Category)

	assertError(t, do(t, s, "PUT", "/v1/categories/general", `{"name":"misc"}`), http.StatusForbidden)
	assertError(t, do(t, s, "PUT", "/v1/categories/missing", `{"name":"x"}`), http.StatusNotFound)
	assertError(t, do(t, s, "DELETE", "/v1/categories/coding", ""), http.StatusForbidden)
	assertError(t, do(t, s, "DELETE", "/v1/categories/missing", ""), http.StatusNotFound)

	w = do(t, s, "DELETE", "/v1/categories/Platform", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[CategoriesResponse](t, w).Custom)
}

func TestTemplates(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/v1/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[TemplatesResponse](t, w).Templates
	assert.Equal(t, preset.Templates(), all)

	w = do(t, s, "GET", "/v1/templates?category=Development", "")
	for _, tpl := range decode[TemplatesResponse](t, w).Templates {
		assert.Equal(t, preset.TemplateDevelopment, tpl.Category)
	}

	w = do(t, s, "POST", "/v1/templates/"+all[0].ID, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[PresetResponse](t, w).Preset
	assert.Equal(t, all[0].Name, created.Name)
	assert.Equal(t, all[0].Models, created.Models)

	w = do(t, s, "POST", "/v1/templates/"+all[0].ID, `{"name":"Mine"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Mine", decode[PresetResponse](t, w).Preset.Name)

	assertError(t, do(t, s, "POST", "/v1/templates/missing", ""), http.StatusNotFound)
}

// =============================================================================
// LAYER AND LAYOUT TESTS
// =============================================================================

func TestLayers(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/v1/layers", `{"id":"chat-1","category":"floating"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[LayerResponse](t, w)
	assert.Equal(t, 200, first.Z)
	assert.Equal(t, layer.Floating, first.Category)

	w = do(t, s, "POST", "/v1/layers", `{"id":"chat-2","category":"floating"}`)
	assert.Equal(t, 201, decode[LayerResponse](t, w).Z)

	w = do(t, s, "POST", "/v1/layers", `{"id":"confirm","category":"modal"}`)
	assert.Equal(t, 400, decode[LayerResponse](t, w).Z)

	assertError(t, do(t, s, "POST", "/v1/layers", `{"id":"x","category":"sideways"}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/layers", `{"id":" ","category":"toast"}`), http.StatusBadRequest)

	w = do(t, s, "POST", "/v1/layers/chat-1/front", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 201, decode[LayerResponse](t, w).Z)

	w = do(t, s, "GET", "/v1/layers/chat-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, decode[LayerResponse](t, w).Z)

	assertError(t, do(t, s, "GET", "/v1/layers/ghost", ""), http.StatusNotFound)
	assertError(t, do(t, s, "POST", "/v1/layers/ghost/front", ""), http.StatusNotFound)

	w = do(t, s, "GET", "/v1/layers", "")
	entries := decode[LayersResponse](t, w).Layers
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"chat-2", "chat-1", "confirm"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})

	w = do(t, s, "DELETE", "/v1/layers/chat-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[LayersResponse](t, w).Layers, 2)
	assert.Equal(t, http.StatusOK, do(t, s, "DELETE", "/v1/layers/chat-2", "").Code)

	w = do(t, s, "GET", "/v1/layers/chat-1", "")
	assert.Equal(t, 200, decode[LayerResponse](t, w).Z)
}

func TestLayouts(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"Work","windows":[
		{"id":"w-front","x":10,"y":10,"width":400,"height":600,"stack":1},
		{"id":"w-back","x":420,"y":10,"width":400,"height":600,"stack":0}]}`
	w := do(t, s, "POST", "/v1/layouts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[LayoutResponse](t, w).Layout
	assert.Equal(t, "w-back", saved.Windows[0].ID)

	w = do(t, s, "GET", "/v1/layouts/work", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Work", decode[LayoutResponse](t, w).Layout.Name)

	w = do(t, s, "POST", "/v1/layouts/Work/apply", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	placements := decode[ApplyLayoutResponse](t, w).Placements
	require.Len(t, placements, 2)
	assert.Equal(t, "w-back", placements[0].Window.ID)
	assert.Less(t, placements[0].Z, placements[1].Z)
	assert.True(t, s.layers.IsRegistered("w-front"))

	assertError(t, do(t, s, "POST", "/v1/layouts", `{"name":"Empty","windows":[]}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/layouts", `{"name":"","windows":[{"id":"a"}]}`), http.StatusBadRequest)
	assertError(t, do(t, s, "POST", "/v1/layouts", `{"name":"Dup","windows":[{"id":"a"},{"id":"a"}]}`), http.StatusBadRequest)
	assertError(t, do(t, s, "GET", "/v1/layouts/missing", ""), http.StatusNotFound)
	assertError(t, do(t, s, "POST", "/v1/layouts/missing/apply", ""), http.StatusNotFound)

	w = do(t, s, "GET", "/v1/layouts", "")
	assert.Len(t, decode[LayoutsResponse](t, w).Layouts, 1)

	w = do(t, s, "DELETE", "/v1/layouts/Work", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[LayoutsResponse](t, w).Layouts)
	assertError(t, do(t, s, "DELETE", "/v1/layouts/Work", ""), http.StatusNotFound)
}

func TestLayouts_CaptureUsesLiveOrder(t *testing.T) {
	s := newTestServer(t)
	s.layers.Register("a", layer.Floating)
	s.layers.Register("b", layer.Floating)
	s.layers.BringToFront("a")

	w := do(t, s, "POST", "/v1/layouts", `{"name":"Live","capture":true,"windows":[{"id":"a","stack":0},{"id":"b","stack":1}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	l := decode[LayoutResponse](t, w).Layout
	assert.Equal(t, []string{"b", "a"}, []string{l.Windows[0].ID, l.Windows[1].ID})
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
