// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend_SimilarityScenario(t *testing.T) {
	c := []QuickPreset{{ID: "p", Name: "Pair", Models: []string{"gpt-4o", "claude-3"}}}

	recs := Recommend(c, UsageStats{}, []string{"gpt-4o"}, epoch, 0)

	require.Len(t, recs, 1)
	assert.Equal(t, "p", recs[0].Preset.ID)
	assert.InDelta(t, 25.0, recs[0].Score, 1e-9)
	assert.Equal(t, SignalSimilar, recs[0].Signal)
}

func TestRecommend_SimilarityBounds(t *testing.T) {
	c := []QuickPreset{
		{ID: "full", Models: []string{"a", "b"}},
		{ID: "none", Models: []string{"x", "y"}},
		{ID: "low", Models: []string{"a", "q", "r", "s"}},
		{ID: "partial", Models: []string{"a", "b", "c"}},
	}

	recs := Recommend(c, UsageStats{}, []string{"a", "b"}, epoch, 10)

	// full: overlap equals its size. none: no overlap. low: 1/4 < 0.3.
	require.Len(t, recs, 1)
	assert.Equal(t, "partial", recs[0].Preset.ID)
	assert.InDelta(t, 2.0/3.0*50, recs[0].Score, 1e-9)
}

func TestRecommend_Frequency(t *testing.T) {
	c := []QuickPreset{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	stats := UsageStats{
		"a": {UsageCount: 1, LastUsedAt: epoch.Add(-72 * time.Hour)},
		"b": {UsageCount: 4, LastUsedAt: epoch.Add(-72 * time.Hour)},
		"c": {UsageCount: 3, LastUsedAt: epoch.Add(-72 * time.Hour)},
	}

	recs := Recommend(c, stats, nil, epoch, 5)

	require.Len(t, recs, 2, "only the top two by usage")
	assert.Equal(t, "b", recs[0].Preset.ID)
	assert.Equal(t, 40.0, recs[0].Score)
	assert.Equal(t, "c", recs[1].Preset.ID)
	assert.Equal(t, 30.0, recs[1].Score)
	assert.Equal(t, SignalFrequency, recs[0].Signal)
	assert.Equal(t, 4, recs[0].Preset.UsageCount, "usage is materialized on results")
}

func TestRecommend_Recency(t *testing.T) {
	c := []QuickPreset{{ID: "old"}, {ID: "hour"}, {ID: "now"}, {ID: "day"}}
	stats := UsageStats{
		"old":  {LastUsedAt: epoch.Add(-48 * time.Hour)},
		"hour": {LastUsedAt: epoch.Add(-time.Hour)},
		"now":  {LastUsedAt: epoch.Add(-6 * time.Minute)},
		"day":  {LastUsedAt: epoch.Add(-20 * time.Hour)},
	}

	recs := Recommend(c, stats, nil, epoch, 5)

	require.Len(t, recs, 2)
	assert.Equal(t, "now", recs[0].Preset.ID)
	assert.InDelta(t, 29.9, recs[0].Score, 1e-9)
	assert.Equal(t, "hour", recs[1].Preset.ID)
	assert.InDelta(t, 29.0, recs[1].Score, 1e-9)
	assert.Equal(t, SignalRecent, recs[1].Signal)
}

func TestRecommend_RecencyTopTwoOutsideWindow(t *testing.T) {
	c := []QuickPreset{{ID: "a"}, {ID: "b"}}
	stats := UsageStats{
		"a": {LastUsedAt: epoch.Add(-25 * time.Hour)},
		"b": {LastUsedAt: epoch.Add(-30 * time.Hour)},
	}
	assert.Empty(t, Recommend(c, stats, nil, epoch, 5))
}

func TestRecommend_NeglectedFavorites(t *testing.T) {
	c := []QuickPreset{
		{ID: "never", IsFavorite: true},
		{ID: "stale", IsFavorite: true},
		{ID: "fresh", IsFavorite: true},
		{ID: "plain"},
	}
	stats := UsageStats{
		"stale": {LastUsedAt: epoch.Add(-30 * time.Hour)},
		"fresh": {LastUsedAt: epoch.Add(-23 * time.Hour)},
	}

	recs := Recommend(c, stats, nil, epoch, 10)

	var favorites []string
	for _, r := range recs {
		if r.Signal == SignalFavorite {
			favorites = append(favorites, r.Preset.ID)
			assert.Equal(t, 25.0, r.Score)
		}
	}
	assert.Equal(t, []string{"never", "stale"}, favorites)
}

func TestRecommend_FirstSignalWins(t *testing.T) {
	// "a" is both the most used and a neglected favorite; the frequency
	// reason is kept even though its score is lower.
	c := []QuickPreset{{ID: "a", IsFavorite: true}}
	stats := UsageStats{"a": {UsageCount: 1, LastUsedAt: epoch.Add(-48 * time.Hour)}}

	recs := Recommend(c, stats, nil, epoch, 5)

	require.Len(t, recs, 1)
	assert.Equal(t, SignalFrequency, recs[0].Signal)
	assert.Equal(t, 10.0, recs[0].Score)
}

func TestRecommend_SortedAndCapped(t *testing.T) {
	c := []QuickPreset{
		{ID: "f1", IsFavorite: true},
		{ID: "f2", IsFavorite: true},
		{ID: "used"},
		{ID: "sim", Models: []string{"a", "b"}},
	}
	stats := UsageStats{"used": {UsageCount: 9, LastUsedAt: epoch.Add(-48 * time.Hour)}}

	recs := Recommend(c, stats, []string{"a"}, epoch, 0)

	require.Len(t, recs, DefaultRecommendationLimit)
	assert.Equal(t, "used", recs[0].Preset.ID)
	assert.Equal(t, 90.0, recs[0].Score)
	// sim scores 25 like the favorites but was found first.
	assert.Equal(t, []string{"sim", "f1"}, []string{recs[1].Preset.ID, recs[2].Preset.ID})
}

func TestRecommend_Deterministic(t *testing.T) {
	c, stats := sortFixture()
	stats["1"] = Usage{UsageCount: 5, LastUsedAt: epoch.Add(-2 * time.Hour)}
	current := []string{"openai/gpt-4o", "google/gemini-1.5-pro"}

	first := Recommend(c, stats, current, epoch, 10)
	second := Recommend(c, stats, current, epoch, 10)

	assert.Equal(t, first, second)
}

func TestStore_RecommendationsUsesClock(t *testing.T) {
	s, clock := newTestStore(t, nil)
	id := s.Add(spec("A", "m"))[0].ID
	clock.Set(epoch)
	s.TrackUsage(id)

	clock.Set(epoch.Add(2 * time.Hour))
	recs := s.Recommendations(nil, 5)

	require.Len(t, recs, 1)
	assert.Equal(t, SignalFrequency, recs[0].Signal)
	assert.Equal(t, id, recs[0].Preset.ID)
	assert.Equal(t, 1, recs[0].Preset.UsageCount)
}
