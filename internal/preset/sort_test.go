// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortFixture() ([]QuickPreset, UsageStats) {
	c := []QuickPreset{
		{ID: "1", Name: "beta", CreatedAt: epoch.Add(1 * time.Hour), Models: []string{"openai/gpt-4o"}},
		{ID: "2", Name: "Alpha", CreatedAt: epoch.Add(3 * time.Hour), IsFavorite: true, Models: []string{"anthropic/claude-3-haiku"}},
		{ID: "3", Name: "gamma", CreatedAt: epoch.Add(2 * time.Hour), Models: []string{"google/gemini-1.5-pro"}, Category: "research"},
		{ID: "4", Name: "Delta", CreatedAt: epoch, IsFavorite: true, Description: "Fast ANSWERS", Models: []string{"openai/o1/preview"}},
	}
	stats := UsageStats{
		"1": {UsageCount: 5},
		"2": {UsageCount: 10},
		"3": {UsageCount: 2},
		"4": {UsageCount: 1},
	}
	return c, stats
}

func TestSort_UsageScenario(t *testing.T) {
	c := []QuickPreset{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	stats := UsageStats{"1": {UsageCount: 5}, "2": {UsageCount: 10}, "3": {UsageCount: 2}}

	assert.Equal(t, []string{"2", "1", "3"}, ids(Sort(c, SortUsage, stats)))
}

func TestSort_Options(t *testing.T) {
	tests := []struct {
		opt  SortOption
		want []string
	}{
		{SortManual, []string{"1", "2", "3", "4"}},
		{SortUsage, []string{"2", "1", "3", "4"}},
		{SortName, []string{"2", "1", "4", "3"}},
		{SortDate, []string{"2", "3", "1", "4"}},
		{SortFavorites, []string{"2", "4", "1", "3"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.opt), func(t *testing.T) {
			c, stats := sortFixture()
			got := Sort(c, tt.opt, stats)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, []string{"1", "2", "3", "4"}, ids(c), "input must not be reordered")
		})
	}
}

func TestSort_ReturnsCopies(t *testing.T) {
	c, stats := sortFixture()
	got := Sort(c, SortManual, stats)
	got[0].Models[0] = "changed"
	assert.Equal(t, "openai/gpt-4o", c[0].Models[0])
}

func TestParseSortOption(t *testing.T) {
	opt, err := ParseSortOption("")
	require.NoError(t, err)
	assert.Equal(t, SortManual, opt)

	opt, err = ParseSortOption("Usage")
	require.NoError(t, err)
	assert.Equal(t, SortUsage, opt)

	_, err = ParseSortOption("random")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"alpha", []string{"2"}},
		{"ALPHA", []string{"2"}},
		{"answers", []string{"4"}},
		{"claude", []string{"2"}},
		{"openai", []string{"1", "4"}},
		{"research", []string{"3"}},
		{"a", []string{"1", "2", "3", "4"}},
		{"nothing-matches", nil},
	}

	c, _ := sortFixture()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Search(c, tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSearch_BlankQueryReturnsInput(t *testing.T) {
	c, _ := sortFixture()
	assert.Equal(t, c, Search(c, ""))
	assert.Equal(t, c, Search(c, "   \t"))
}

func TestSearch_UnicodeFolding(t *testing.T) {
	c := []QuickPreset{{ID: "x", Name: "STRASSE Übersetzer"}}
	assert.Len(t, Search(c, "übersetzer"), 1)
}

func TestFilterModels(t *testing.T) {
	c, _ := sortFixture()

	got, err := FilterModels(c, "openai/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got), "* must not cross a provider separator")

	got, err = FilterModels(c, "openai/**")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, ids(got))

	got, err = FilterModels(c, "{anthropic,google}/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(got))

	_, err = FilterModels(c, "[")
	assert.Error(t, err)
}

func TestFilterCategoryAndFavorites(t *testing.T) {
	c, _ := sortFixture()
	assert.Equal(t, []string{"3"}, ids(FilterCategory(c, "Research")))

	s, _ := newTestStore(t, nil)
	presets := s.Add(Spec{Name: "A", Models: []string{"m"}, Category: "coding"}, spec("B", "m"))
	_, err := s.ToggleFavorite(presets[1].ID)
	require.NoError(t, err)

	assert.Equal(t, []string{presets[0].ID}, ids(s.FilterCategory("coding")))
	assert.Equal(t, []string{presets[1].ID}, ids(s.Favorites()))
}
