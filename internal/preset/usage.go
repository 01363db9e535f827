// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"sort"
	"time"
)

// Usage is how often and how recently one preset was applied.
type Usage struct {
	UsageCount int       `json:"usageCount"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// UsageStats maps preset ids to their usage. It is kept apart from the
// presets so renames and edits never reset a preset's history of use.
type UsageStats map[string]Usage

// Count returns the usage count for id, 0 if it was never used.
func (u UsageStats) Count(id string) int {
	return u[id].UsageCount
}

// LastUsed returns when id was last used and whether it ever was.
func (u UsageStats) LastUsed(id string) (time.Time, bool) {
	usage, ok := u[id]
	if !ok || usage.LastUsedAt.IsZero() {
		return time.Time{}, false
	}
	return usage.LastUsedAt, true
}

func (u UsageStats) clone() UsageStats {
	out := make(UsageStats, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

func (u UsageStats) apply(p QuickPreset) QuickPreset {
	p.UsageCount = 0
	p.LastUsedAt = nil
	if usage, ok := u[p.ID]; ok {
		p.UsageCount = usage.UsageCount
		if !usage.LastUsedAt.IsZero() {
			t := usage.LastUsedAt
			p.LastUsedAt = &t
		}
	}
	return p
}

// WithUsage returns deep copies of presets with UsageCount and LastUsedAt
// taken from stats.
func WithUsage(presets []QuickPreset, stats UsageStats) []QuickPreset {
	out := make([]QuickPreset, len(presets))
	for i, p := range presets {
		out[i] = stats.apply(p.Clone())
	}
	return out
}

// MostUsed returns up to limit presets with at least one use, most used
// first. Ties keep collection order.
func MostUsed(presets []QuickPreset, stats UsageStats, limit int) []QuickPreset {
	var used []QuickPreset
	for _, p := range presets {
		if stats.Count(p.ID) > 0 {
			used = append(used, p)
		}
	}
	sort.SliceStable(used, func(i, j int) bool {
		return stats.Count(used[i].ID) > stats.Count(used[j].ID)
	})
	if limit >= 0 && len(used) > limit {
		used = used[:limit]
	}
	return WithUsage(used, stats)
}

// =============================================================================
// STORE METHODS
// =============================================================================

// TrackUsage records one use of the preset id now and returns the updated
// statistics. Ids that are not (or no longer) in the collection are counted
// too.
func (s *Store) TrackUsage(id string) UsageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := s.usage[id]
	usage.UsageCount++
	usage.LastUsedAt = s.now()
	s.usage[id] = usage

	s.saveUsageLocked()
	return s.usage.clone()
}

// Usage returns a copy of all usage statistics.
func (s *Store) Usage() UsageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage.clone()
}

// UsageCountOf returns how often id was used.
func (s *Store) UsageCountOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage.Count(id)
}

// MostUsed returns the limit most used presets of the collection.
func (s *Store) MostUsed(limit int) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MostUsed(s.presets, s.usage, limit)
}
