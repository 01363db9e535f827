// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a preset, version or template id is unknown.
	ErrNotFound = errors.New("preset not found")
	// ErrIndexOutOfRange is returned by Reorder for positions outside the collection.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyName is returned when a preset or category name is blank.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrNoModels is returned when a preset has no models.
	ErrNoModels = errors.New("preset must contain at least one model")
)

// =============================================================================
// QUICK PRESET
// =============================================================================

// SourceType tells where a preset originally came from.
type SourceType string

const (
	SourceBuiltIn SourceType = "built-in"
	SourceCustom  SourceType = "custom"
)

// QuickPreset is a named selection of models.
//
// UsageCount and LastUsedAt are not authoritative: the Store fills them in
// from its usage statistics whenever it hands presets out.
type QuickPreset struct {
	ID          string     `json:"id" yaml:"id"`
	SourceID    string     `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	SourceType  SourceType `json:"sourceType" yaml:"sourceType"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Models      []string   `json:"models" yaml:"models"`
	IsModified  bool       `json:"isModified" yaml:"isModified"`
	IsFavorite  bool       `json:"isFavorite" yaml:"isFavorite"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	UsageCount  int        `json:"usageCount,omitempty" yaml:"usageCount,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty" yaml:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// Clone returns a deep copy of p.
func (p QuickPreset) Clone() QuickPreset {
	p.Models = cloneModels(p.Models)
	if p.LastUsedAt != nil {
		t := *p.LastUsedAt
		p.LastUsedAt = &t
	}
	return p
}

// Spec describes a preset to be created.
type Spec struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Models      []string   `json:"models"`
	SourceID    string     `json:"sourceId,omitempty"`
	SourceType  SourceType `json:"sourceType,omitempty"`
	Category    string     `json:"category,omitempty"`
}

// Validate checks that the spec names a preset with at least one model.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Models) == 0 {
		return ErrNoModels
	}
	return nil
}

// Patch lists the fields to change in Update. Nil fields are left alone.
type Patch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Models      []string `json:"models,omitempty"`
	Category    *string  `json:"category,omitempty"`
	IsFavorite  *bool    `json:"isFavorite,omitempty"`
}

// Validate rejects patches that would blank the name or empty the models.
func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	if p.Models != nil && len(p.Models) == 0 {
		return ErrNoModels
	}
	return nil
}

// =============================================================================
// MODEL LIST HELPERS
// =============================================================================

func cloneModels(models []string) []string {
	if models == nil {
		return []string{}
	}
	out := make([]string, len(models))
	copy(out, models)
	return out
}

// sameModels reports whether a and b are the same sequence.
func sameModels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sameModelSet reports whether a and b contain the same distinct models,
// ignoring order.
func sameModelSet(a, b []string) bool {
	setA := modelSet(a)
	setB := modelSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for m := range setA {
		if _, ok := setB[m]; !ok {
			return false
		}
	}
	return true
}

func modelSet(models []string) map[string]struct{} {
	set := make(map[string]struct{}, len(models))
	for _, m := range models {
		set[m] = struct{}{}
	}
	return set
}

func cloneAll(presets []QuickPreset) []QuickPreset {
	out := make([]QuickPreset, len(presets))
	for i, p := range presets {
		out[i] = p.Clone()
	}
	return out
}

func indexOf(presets []QuickPreset, id string) int {
	for i, p := range presets {
		if p.ID == id {
			return i
		}
	}
	return -1
}
