// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// =============================================================================
// SORTING
// =============================================================================

// SortOption selects the order of a read view.
type SortOption string

const (
	SortManual    SortOption = "manual"
	SortUsage     SortOption = "usage"
	SortName      SortOption = "name"
	SortDate      SortOption = "date"
	SortFavorites SortOption = "favorites"
)

var (
	// ErrUnknownSort is returned by ParseSortOption for unknown names.
	ErrUnknownSort = errors.New("unknown sort option")
	// ErrInvalidPattern is returned by FilterModels for malformed globs.
	ErrInvalidPattern = errors.New("invalid model pattern")
)

// SortOptions lists every option in display order.
var SortOptions = []SortOption{SortManual, SortUsage, SortName, SortDate, SortFavorites}

// ParseSortOption parses a sort option name. An empty string means manual.
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortManual, nil
	}
	for _, opt := range SortOptions {
		if strings.EqualFold(string(opt), s) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSort, s)
}

// Sort returns a sorted copy of c. The input is not modified. Ties keep
// collection order.
func Sort(c []QuickPreset, opt SortOption, stats UsageStats) []QuickPreset {
	out := cloneAll(c)

	switch opt {
	case SortUsage:
		sort.SliceStable(out, func(i, j int) bool {
			return stats.Count(out[i].ID) > stats.Count(out[j].ID)
		})
	case SortName:
		col := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Name, out[j].Name) < 0
		})
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortFavorites:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].IsFavorite != out[j].IsFavorite {
				return out[i].IsFavorite
			}
			return stats.Count(out[i].ID) > stats.Count(out[j].ID)
		})
	}
	return out
}

// =============================================================================
// SEARCH AND FILTERS
// =============================================================================

// Search returns the presets whose name, description, category or any model
// contains query, ignoring case. A blank query returns c unchanged.
func Search(c []QuickPreset, query string) []QuickPreset {
	query = strings.TrimSpace(query)
	if query == "" {
		return c
	}

	fold := cases.Fold()
	needle := fold.String(query)
	contains := func(s string) bool {
		return s != "" && strings.Contains(fold.String(s), needle)
	}

	var out []QuickPreset
	for _, p := range c {
		if contains(p.Name) || contains(p.Description) || contains(p.Category) {
			out = append(out, p.Clone())
			continue
		}
		for _, m := range p.Models {
			if contains(m) {
				out = append(out, p.Clone())
				break
			}
		}
	}
	return out
}

// FilterModels returns the presets with at least one model matching the
// glob pattern. '/' separates provider from model, so "openai/*" matches
// "openai/gpt-4o" but not "openai/o1/preview".
func FilterModels(c []QuickPreset, pattern string) ([]QuickPreset, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}

	var out []QuickPreset
	for _, p := range c {
		for _, m := range p.Models {
			if g.Match(m) {
				out = append(out, p.Clone())
				break
			}
		}
	}
	return out, nil
}

// FilterCategory returns the presets filed under category, ignoring case.
func FilterCategory(c []QuickPreset, category string) []QuickPreset {
	var out []QuickPreset
	for _, p := range c {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// FilterCategory returns the presets filed under category with usage
// filled in.
func (s *Store) FilterCategory(category string) []QuickPreset {
	return FilterCategory(s.Presets(), category)
}

// Favorites returns the favorited presets with usage filled in.
func (s *Store) Favorites() []QuickPreset {
	var out []QuickPreset
	for _, p := range s.Presets() {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}
