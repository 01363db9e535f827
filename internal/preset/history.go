// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"fmt"
	"sort"
	"time"
)

// ChangeType says what kind of edit produced a version.
type ChangeType string

const (
	ChangeCreated       ChangeType = "created"
	ChangeRenamed       ChangeType = "renamed"
	ChangeModelsChanged ChangeType = "models_changed"
	ChangeRestored      ChangeType = "restored"
)

// Version is an immutable snapshot of a preset's content.
type Version struct {
	ID          string     `json:"id" yaml:"id"`
	PresetID    string     `json:"presetId" yaml:"presetId"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Models      []string   `json:"models" yaml:"models"`
	Timestamp   time.Time  `json:"timestamp" yaml:"timestamp"`
	ChangeType  ChangeType `json:"changeType" yaml:"changeType"`
}

// DefaultHistoryLimit is the default number of versions kept.
const DefaultHistoryLimit = 100

// HistoryPolicy bounds the version log. When it grows past Limit the
// oldest entries (by timestamp) are dropped. With PerPreset unset the limit
// is shared by all presets, so one busy preset can push out the history of
// the others; with PerPreset set each preset keeps up to Limit entries.
type HistoryPolicy struct {
	Limit     int  `json:"limit"`
	PerPreset bool `json:"perPreset"`
}

func (s *Store) recordLocked(p QuickPreset, change ChangeType) {
	s.history = append(s.history, Version{
		ID:          s.newID(),
		PresetID:    p.ID,
		Name:        p.Name,
		Description: p.Description,
		Models:      cloneModels(p.Models),
		Timestamp:   s.now(),
		ChangeType:  change,
	})
	s.history = trimHistory(s.history, s.policy)
}

// trimHistory drops the oldest entries beyond the policy limit while
// keeping the survivors in log order.
func trimHistory(entries []Version, policy HistoryPolicy) []Version {
	if policy.Limit <= 0 {
		return entries
	}

	drop := make(map[int]bool)
	if policy.PerPreset {
		groups := make(map[string][]int)
		for i, v := range entries {
			groups[v.PresetID] = append(groups[v.PresetID], i)
		}
		for _, idx := range groups {
			for _, i := range oldestFirst(entries, idx, len(idx)-policy.Limit) {
				drop[i] = true
			}
		}
	} else {
		idx := make([]int, len(entries))
		for i := range entries {
			idx[i] = i
		}
		for _, i := range oldestFirst(entries, idx, len(entries)-policy.Limit) {
			drop[i] = true
		}
	}

	if len(drop) == 0 {
		return entries
	}
	kept := make([]Version, 0, len(entries)-len(drop))
	for i, v := range entries {
		if !drop[i] {
			kept = append(kept, v)
		}
	}
	return kept
}

// oldestFirst returns the n oldest positions among idx. Entries with equal
// timestamps are ordered by position in the entries.
func oldestFirst(entries []Version, idx []int, n int) []int {
	if n <= 0 {
		return nil
	}
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return entries[sorted[a]].Timestamp.Before(entries[sorted[b]].Timestamp)
	})
	return sorted[:n]
}

// History returns the versions of one preset, newest first.
func (s *Store) History(presetID string) []Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Version
	for i := len(s.history) - 1; i >= 0; i-- {
		if v := s.history[i]; v.PresetID == presetID {
			v.Models = cloneModels(v.Models)
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// HistoryLen returns the total number of versions in the log.
func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Restore copies name, description and models from a version back onto its
// preset and records a "restored" version. Later versions stay in the log.
func (s *Store) Restore(presetID, versionID string) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.presets, presetID)
	if i < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotFound, presetID)
	}

	var (
		version Version
		found   bool
	)
	for _, v := range s.history {
		if v.ID == versionID && v.PresetID == presetID {
			version, found = v, true
			break
		}
	}
	if !found {
		return s.snapshotLocked(), fmt.Errorf("%w: version %s of %s", ErrNotFound, versionID, presetID)
	}

	p := s.presets[i]
	p.Name = version.Name
	p.Description = version.Description
	p.Models = cloneModels(version.Models)
	s.refreshModifiedLocked(&p)
	s.presets[i] = p

	s.recordLocked(p, ChangeRestored)
	s.savePresetsLocked()
	s.saveHistoryLocked()
	return s.snapshotLocked(), nil
}
