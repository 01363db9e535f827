// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/polychat/internal/kv"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src, _ := newTestStore(t, nil)
	src.Add(
		Spec{Name: "Writers", Description: "long form", Models: []string{"a", "b"}},
		Spec{Name: "Coders", Models: []string{"c"}, SourceID: "coding", SourceType: SourceBuiltIn},
	)
	original := src.Presets()

	data, err := src.Export(nil)
	require.NoError(t, err)

	items, err := ParseImport(data)
	require.NoError(t, err)

	dst, _ := newTestStore(t, nil)
	// Burn some ids so imported ids cannot collide with the source's.
	dst.Add(spec("existing", "z"))
	all, added := dst.Import(items)
	assert.Equal(t, len(original), added)
	imported := all[1:]

	require.Len(t, imported, len(original))
	for i := range original {
		assert.Equal(t, original[i].Name, imported[i].Name)
		assert.Equal(t, original[i].Description, imported[i].Description)
		assert.Equal(t, original[i].Models, imported[i].Models)
		assert.Equal(t, original[i].SourceType, imported[i].SourceType)
	}
	assert.NotEqual(t, original[0].ID, imported[0].ID)
}

func TestExport_EnvelopeShape(t *testing.T) {
	presets := []QuickPreset{{
		ID:         "secret-id",
		Name:       "A",
		Models:     []string{"m"},
		SourceType: SourceCustom,
		IsFavorite: true,
		UsageCount: 7,
		CreatedAt:  epoch,
	}}

	data, err := Export(presets, epoch)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, ExportVersion, env["version"])
	assert.Contains(t, env, "exportedAt")

	list := env["presets"].([]any)
	require.Len(t, list, 1)
	item := list[0].(map[string]any)
	assert.Equal(t, "A", item["name"])
	assert.Equal(t, true, item["isFavorite"])
	assert.NotContains(t, item, "id")
	assert.NotContains(t, item, "usageCount")
	assert.NotContains(t, item, "createdAt")
}

func TestStoreExport_SelectsIDs(t *testing.T) {
	s, _ := newTestStore(t, nil)
	presets := s.Add(spec("A", "m"), spec("B", "m"), spec("C", "m"))

	data, err := s.Export([]string{presets[2].ID, "missing", presets[0].ID})
	require.NoError(t, err)

	items, err := ParseImport(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].Name)
	assert.Equal(t, "A", items[1].Name)
}

func TestParseImport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{oops"},
		{"array", `[{"name":"a"}]`},
		{"missing presets", `{"version":"1.0"}`},
		{"presets not array", `{"presets":{"name":"a"}}`},
		{"presets null", `{"presets":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseImport([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidImport)
			assert.Nil(t, items)
		})
	}
}

func TestParseImport_Defaults(t *testing.T) {
	items, err := ParseImport([]byte(`{"presets":[{"name":"A","models":["m"],"isFavorite":true},{"name":"B","models":["n"],"sourceType":"built-in","sourceId":"fast"}]}`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, SourceCustom, items[0].SourceType)
	assert.True(t, items[0].IsFavorite)
	assert.Equal(t, SourceBuiltIn, items[1].SourceType)
	assert.Equal(t, "fast", items[1].SourceID)

	items, err = ParseImport([]byte(`{"presets":[]}`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestImport_KeepsFavoriteAndRegeneratesIDs(t *testing.T) {
	s, _ := newTestStore(t, nil)
	presets, added := s.Import([]ImportedPreset{
		{Spec: spec("A", "m"), IsFavorite: true},
		{Spec: spec("B", "m")},
	})

	assert.Equal(t, 2, added)
	require.Len(t, presets, 2)
	assert.True(t, presets[0].IsFavorite)
	assert.False(t, presets[1].IsFavorite)
	assert.NotEqual(t, presets[0].ID, presets[1].ID)
	assert.Len(t, s.History(presets[0].ID), 1)
}

func TestImport_SkipsUnusableItems(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(Options{KV: kv.NewMemoryStore(), Logger: log.New(&buf, "", 0)})

	items, err := ParseImport([]byte(`{"presets":[
		{"name":"Keep","models":["m"]},
		{"name":"  ","models":["m"]},
		{"name":"No models","models":[]},
		{"name":"Also keep","models":["n"]}
	]}`))
	require.NoError(t, err)
	require.Len(t, items, 4)

	presets, added := s.Import(items)
	assert.Equal(t, 2, added)
	require.Len(t, presets, 2)
	assert.Equal(t, "Keep", presets[0].Name)
	assert.Equal(t, "Also keep", presets[1].Name)
	assert.Equal(t, 2, strings.Count(buf.String(), "PRESET_IMPORT_SKIPPED"))
	assert.Contains(t, buf.String(), "index=2")
}

func TestExportYAML_RoundTrip(t *testing.T) {
	presets := []QuickPreset{
		{Name: "A", Description: "first", Models: []string{"x/1", "y/2"}, SourceType: SourceCustom},
		{Name: "B", Models: []string{"z/3"}, SourceType: SourceBuiltIn, SourceID: "fast", IsFavorite: true},
	}

	data, err := ExportYAML(presets, epoch)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version:")

	items, err := ParseImportYAML(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Description)
	assert.Equal(t, []string{"x/1", "y/2"}, items[0].Models)
	assert.True(t, items[1].IsFavorite)
	assert.Equal(t, "fast", items[1].SourceID)

	_, err = ParseImportYAML([]byte("version: 1\n"))
	assert.ErrorIs(t, err, ErrInvalidImport)
	_, err = ParseImportYAML([]byte("presets: nope\n"))
	assert.ErrorIs(t, err, ErrInvalidImport)
}

// =============================================================================
// SHARING
// =============================================================================

func TestShareURL_RoundTrip(t *testing.T) {
	p := QuickPreset{Name: "Team Pick", Description: "for the standup", Models: []string{"openai/gpt-4o", "anthropic/claude-3-haiku"}}

	link, err := ShareURL("https://polychat.local/app", p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://polychat.local/app#preset="))
	payload := strings.TrimPrefix(link, "https://polychat.local/app#preset=")
	assert.NotContains(t, payload, "=", "payload must be unpadded")

	shared, err := ParseShareURL(link)
	require.NoError(t, err)
	assert.Equal(t, p.Name, shared.Name)
	assert.Equal(t, p.Description, shared.Description)
	assert.Equal(t, p.Models, shared.Models)
}

func TestShareURL_ReplacesExistingFragment(t *testing.T) {
	link, err := ShareURL("https://x.test/#old", QuickPreset{Name: "A", Models: []string{"m"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://x.test/#preset="))
}

func TestParseShareURL_AcceptsBarePayloadAndPadding(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"name":"A","models":["m"]}`))

	shared, err := ParseShareURL(payload)
	require.NoError(t, err)
	assert.Equal(t, "A", shared.Name)

	shared, err = ParseShareURL("https://x.test/#preset=" + payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, shared.Models)
}

func TestParseShareURL_FailsClosed(t *testing.T) {
	encode := func(s string) string {
		return "https://x.test/#preset=" + base64.RawURLEncoding.EncodeToString([]byte(s))
	}
	tests := []struct {
		name string
		link string
	}{
		{"empty", ""},
		{"no fragment", "https://x.test/"},
		{"other fragment", "https://x.test/#foo=bar"},
		{"bad base64", "https://x.test/#preset=!!!"},
		{"not json", encode("hello")},
		{"missing name", encode(`{"models":["m"]}`)},
		{"blank name", encode(`{"name":" ","models":["m"]}`)},
		{"missing models", encode(`{"name":"A"}`)},
		{"null models", encode(`{"name":"A","models":null}`)},
		{"models not array", encode(`{"name":"A","models":"m"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseShareURL(tt.link)
			assert.ErrorIs(t, err, ErrInvalidShare)
		})
	}
}

func TestStoreShareURL(t *testing.T) {
	s, _ := newTestStore(t, nil)
	id := s.Add(spec("A", "m"))[0].ID

	link, err := s.ShareURL("https://x.test/", id)
	require.NoError(t, err)
	shared, err := ParseShareURL(link)
	require.NoError(t, err)
	assert.Equal(t, "A", shared.Name)

	created := s.Add(shared.Spec())
	assert.Len(t, created, 2)

	_, err = s.ShareURL("https://x.test/", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
