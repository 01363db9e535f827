// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultRecommendationLimit is how many recommendations are returned when
// no positive limit is given.
const DefaultRecommendationLimit = 3

const (
	frequencyTop    = 2
	recencyTop      = 2
	recencyWindow   = 24 * time.Hour
	minSimilarity   = 0.3
	favoriteScore   = 25
	frequencyWeight = 10
	similarityScale = 50
	recencyCeiling  = 30
)

// Signal names the heuristic that surfaced a recommendation.
type Signal string

const (
	SignalFrequency Signal = "frequency"
	SignalSimilar   Signal = "similar"
	SignalRecent    Signal = "recent"
	SignalFavorite  Signal = "favorite"
)

// Recommendation is one ranked preset.
type Recommendation struct {
	Preset QuickPreset `json:"preset" yaml:"preset"`
	Score  float64     `json:"score" yaml:"score"`
	Reason string      `json:"reason" yaml:"reason"`
	Signal Signal      `json:"signal" yaml:"signal"`
}

// Recommend ranks presets worth surfacing given the currently selected
// models. The result depends only on its arguments.
//
// Four signals contribute candidates in this order: frequency, similarity
// to current, recency, and neglected favorites. A preset found by several
// signals keeps the first one, even if a later signal scored it higher.
// The survivors are sorted by score (stable) and capped at limit.
func Recommend(c []QuickPreset, stats UsageStats, current []string, now time.Time, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	var all []Recommendation
	all = append(all, frequencySignal(c, stats)...)
	all = append(all, similaritySignal(c, current)...)
	all = append(all, recencySignal(c, stats, now)...)
	all = append(all, favoriteSignal(c, stats, now)...)

	seen := make(map[string]bool, len(all))
	out := make([]Recommendation, 0, len(all))
	for _, r := range all {
		if seen[r.Preset.ID] {
			continue
		}
		seen[r.Preset.ID] = true
		r.Preset = stats.apply(r.Preset.Clone())
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func frequencySignal(c []QuickPreset, stats UsageStats) []Recommendation {
	var used []QuickPreset
	for _, p := range c {
		if stats.Count(p.ID) > 0 {
			used = append(used, p)
		}
	}
	sort.SliceStable(used, func(i, j int) bool {
		return stats.Count(used[i].ID) > stats.Count(used[j].ID)
	})
	if len(used) > frequencyTop {
		used = used[:frequencyTop]
	}

	out := make([]Recommendation, 0, len(used))
	for _, p := range used {
		n := stats.Count(p.ID)
		out = append(out, Recommendation{
			Preset: p,
			Score:  float64(n * frequencyWeight),
			Reason: fmt.Sprintf("One of your most used presets (%d uses)", n),
			Signal: SignalFrequency,
		})
	}
	return out
}

func similaritySignal(c []QuickPreset, current []string) []Recommendation {
	if len(current) == 0 {
		return nil
	}
	currentSet := modelSet(current)

	var out []Recommendation
	for _, p := range c {
		overlap := 0
		for _, m := range p.Models {
			if _, ok := currentSet[m]; ok {
				overlap++
			}
		}
		if overlap == 0 || overlap >= len(p.Models) {
			continue
		}
		similarity := float64(overlap) / float64(max(len(p.Models), len(current)))
		if similarity < minSimilarity || similarity >= 1 {
			continue
		}
		out = append(out, Recommendation{
			Preset: p,
			Score:  similarity * similarityScale,
			Reason: fmt.Sprintf("Shares %d of its models with your current selection", overlap),
			Signal: SignalSimilar,
		})
	}
	return out
}

func recencySignal(c []QuickPreset, stats UsageStats, now time.Time) []Recommendation {
	type recent struct {
		preset QuickPreset
		at     time.Time
	}
	var used []recent
	for _, p := range c {
		if at, ok := stats.LastUsed(p.ID); ok {
			used = append(used, recent{p, at})
		}
	}
	sort.SliceStable(used, func(i, j int) bool {
		return used[i].at.After(used[j].at)
	})
	if len(used) > recencyTop {
		used = used[:recencyTop]
	}

	var out []Recommendation
	for _, u := range used {
		ago := now.Sub(u.at)
		if ago >= recencyWindow {
			continue
		}
		hours := ago.Hours()
		out = append(out, Recommendation{
			Preset: u.preset,
			Score:  math.Max(0, recencyCeiling-hours),
			Reason: "Used recently",
			Signal: SignalRecent,
		})
	}
	return out
}

func favoriteSignal(c []QuickPreset, stats UsageStats, now time.Time) []Recommendation {
	var out []Recommendation
	for _, p := range c {
		if !p.IsFavorite {
			continue
		}
		if at, ok := stats.LastUsed(p.ID); ok && now.Sub(at) < recencyWindow {
			continue
		}
		out = append(out, Recommendation{
			Preset: p,
			Score:  favoriteScore,
			Reason: "One of your favorites",
			Signal: SignalFavorite,
		})
	}
	return out
}

// Recommendations ranks the collection against current using the store's
// clock.
func (s *Store) Recommendations(current []string, limit int) []Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Recommend(s.presets, s.usage, current, s.now(), limit)
}
