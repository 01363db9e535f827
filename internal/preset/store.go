// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/polychat/internal/kv"
)

// =============================================================================
// STORE
// =============================================================================

// Options configures a Store. Zero values fall back to sensible defaults.
type Options struct {
	// KV is the durable store. Default: an in-memory store.
	KV kv.Store
	// Logger receives persistence diagnostics. Default: discard.
	Logger *log.Logger
	// Now is the clock. Default: time.Now.
	Now func() time.Time
	// NewID generates preset and version ids. Default: random UUIDs.
	NewID func() string
	// History bounds the version log. Default: 100 entries shared by all presets.
	History HistoryPolicy
	// Catalog holds the built-in definitions. Default: Builtins().
	Catalog Catalog
	// SeedBuiltins fills an empty store with the built-in catalog on first run.
	SeedBuiltins bool
}

// Store owns the preset collection, usage statistics, version history and
// custom categories, and mirrors each of them to kv on every change.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
	policy  HistoryPolicy
	catalog Catalog

	presets []QuickPreset // usage fields always zero here
	usage   UsageStats
	history []Version
	custom  []string
}

// NewStore creates a store and loads whatever kv already holds.
func NewStore(opts Options) *Store {
	s := &Store{
		kv:      opts.KV,
		logger:  opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
		policy:  opts.History,
		catalog: opts.Catalog,
	}
	if s.kv == nil {
		s.kv = kv.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.policy.Limit <= 0 {
		s.policy.Limit = DefaultHistoryLimit
	}
	if s.catalog == nil {
		s.catalog = Builtins()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, present, _ := s.kv.Get(kv.KeyQuickPresets)
	s.loadLocked()
	if !present && opts.SeedBuiltins {
		s.seedLocked()
	}
	return s
}

// Reload re-reads all state from kv, discarding in-memory changes that were
// not persisted. It is used when another process edits the same data.
func (s *Store) Reload() []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.snapshotLocked()
}

func (s *Store) loadLocked() {
	s.presets = []QuickPreset{}
	s.usage = UsageStats{}
	s.history = []Version{}
	s.custom = []string{}

	kv.ReadJSON(s.kv, kv.KeyQuickPresets, &s.presets, s.logger)
	kv.ReadJSON(s.kv, kv.KeyPresetUsageStats, &s.usage, s.logger)
	kv.ReadJSON(s.kv, kv.KeyPresetVersionHistory, &s.history, s.logger)
	kv.ReadJSON(s.kv, kv.KeyPresetCategories, &s.custom, s.logger)

	if s.presets == nil {
		s.presets = []QuickPreset{}
	}
	if s.usage == nil {
		s.usage = UsageStats{}
	}
	for i := range s.presets {
		p := &s.presets[i]
		p.Models = cloneModels(p.Models)
		if p.SourceType == "" {
			p.SourceType = SourceCustom
		}
		p.UsageCount = 0
		p.LastUsedAt = nil
	}
}

// seedLocked replaces the collection with one preset per catalog entry.
func (s *Store) seedLocked() {
	s.presets = []QuickPreset{}
	for _, key := range s.catalog.Keys() {
		def := s.catalog[key]
		s.addLocked(Spec{
			Name:        def.Name,
			Description: def.Description,
			Models:      def.Models,
			SourceID:    key,
			SourceType:  SourceBuiltIn,
		}, false)
	}
	s.savePresetsLocked()
	s.saveHistoryLocked()
}

// ResetToBuiltins throws away the collection and reseeds it from the
// catalog. Usage and history are kept.
func (s *Store) ResetToBuiltins() []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked()
	return s.snapshotLocked()
}

// Catalog returns the built-in catalog the store diffs against.
func (s *Store) Catalog() Catalog {
	return s.catalog
}

// =============================================================================
// READS
// =============================================================================

// Presets returns a copy of the collection with usage filled in.
func (s *Store) Presets() []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns one preset with usage filled in.
func (s *Store) Get(id string) (QuickPreset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.presets, id)
	if i < 0 {
		return QuickPreset{}, false
	}
	return s.usage.apply(s.presets[i].Clone()), true
}

// Len returns the number of presets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.presets)
}

func (s *Store) snapshotLocked() []QuickPreset {
	return WithUsage(s.presets, s.usage)
}

// =============================================================================
// CRUD
// =============================================================================

// Add creates one preset per spec, in order, and returns the new collection.
// New presets start unmodified and not favorited; a missing source type
// means custom.
func (s *Store) Add(specs ...Spec) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spec := range specs {
		s.addLocked(spec, false)
	}
	s.savePresetsLocked()
	s.saveHistoryLocked()
	return s.snapshotLocked()
}

func (s *Store) addLocked(spec Spec, favorite bool) QuickPreset {
	sourceType := spec.SourceType
	if sourceType == "" {
		sourceType = SourceCustom
	}
	p := QuickPreset{
		ID:          s.newID(),
		SourceID:    spec.SourceID,
		SourceType:  sourceType,
		Name:        spec.Name,
		Description: spec.Description,
		Models:      cloneModels(spec.Models),
		IsFavorite:  favorite,
		Category:    spec.Category,
		CreatedAt:   s.now(),
	}
	s.presets = append(s.presets, p)
	s.recordLocked(p, ChangeCreated)
	return p
}

// Update applies patch to the preset with the given id.
//
// For built-in presets, changing the name or models recomputes IsModified
// against the catalog definition; model order does not matter. A history
// entry is recorded for each of name and models whose content changed.
func (s *Store) Update(id string, patch Patch) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.presets, id)
	if i < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	old := s.presets[i]
	next := old.Clone()
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Models != nil {
		next.Models = cloneModels(patch.Models)
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.IsFavorite != nil {
		next.IsFavorite = *patch.IsFavorite
	}
	if patch.Name != nil || patch.Models != nil {
		s.refreshModifiedLocked(&next)
	}

	s.presets[i] = next

	recorded := false
	if next.Name != old.Name {
		s.recordLocked(next, ChangeRenamed)
		recorded = true
	}
	if !sameModels(next.Models, old.Models) {
		s.recordLocked(next, ChangeModelsChanged)
		recorded = true
	}

	s.savePresetsLocked()
	if recorded {
		s.saveHistoryLocked()
	}
	return s.snapshotLocked(), nil
}

// refreshModifiedLocked recomputes IsModified for built-in presets. Custom
// presets have no canonical definition and keep their flag.
func (s *Store) refreshModifiedLocked(p *QuickPreset) {
	if p.SourceType != SourceBuiltIn {
		return
	}
	def, ok := s.catalog.Lookup(p.SourceID)
	if !ok {
		return
	}
	p.IsModified = p.Name != def.Name || !sameModelSet(p.Models, def.Models)
}

// Remove deletes a preset. Its usage and history stay behind.
func (s *Store) Remove(id string) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.presets, id) < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.removeLocked(map[string]bool{id: true})
	s.savePresetsLocked()
	return s.snapshotLocked(), nil
}

func (s *Store) removeLocked(ids map[string]bool) {
	kept := make([]QuickPreset, 0, len(s.presets))
	for _, p := range s.presets {
		if !ids[p.ID] {
			kept = append(kept, p)
		}
	}
	s.presets = kept
}

// Reorder moves the preset at from to position to. It only makes sense
// while the collection is shown in manual order.
func (s *Store) Reorder(from, to int) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.presets)
	if from < 0 || from >= n || to < 0 || to >= n {
		return s.snapshotLocked(), fmt.Errorf("%w: move %d to %d in %d presets", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return s.snapshotLocked(), nil
	}

	moved := s.presets[from]
	rest := make([]QuickPreset, 0, n)
	rest = append(rest, s.presets[:from]...)
	rest = append(rest, s.presets[from+1:]...)

	reordered := make([]QuickPreset, 0, n)
	reordered = append(reordered, rest[:to]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, rest[to:]...)
	s.presets = reordered

	s.savePresetsLocked()
	return s.snapshotLocked(), nil
}

// ToggleFavorite flips the favorite flag of one preset.
func (s *Store) ToggleFavorite(id string) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.toggleFavoriteLocked(id) {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.savePresetsLocked()
	return s.snapshotLocked(), nil
}

func (s *Store) toggleFavoriteLocked(id string) bool {
	i := indexOf(s.presets, id)
	if i < 0 {
		return false
	}
	s.presets[i].IsFavorite = !s.presets[i].IsFavorite
	return true
}

// Duplicate appends a copy of a preset. The copy gets a new id, is always
// marked modified, and is never a favorite. An empty newName yields
// "<name> (Copy)".
func (s *Store) Duplicate(id, newName string) ([]QuickPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.duplicateLocked(id, newName); !ok {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.savePresetsLocked()
	s.saveHistoryLocked()
	return s.snapshotLocked(), nil
}

func (s *Store) duplicateLocked(id, newName string) (QuickPreset, bool) {
	i := indexOf(s.presets, id)
	if i < 0 {
		return QuickPreset{}, false
	}
	src := s.presets[i]
	if newName == "" {
		newName = src.Name + " (Copy)"
	}
	dup := QuickPreset{
		ID:          s.newID(),
		SourceID:    src.SourceID,
		SourceType:  src.SourceType,
		Name:        newName,
		Description: src.Description,
		Models:      cloneModels(src.Models),
		IsModified:  true,
		Category:    src.Category,
		CreatedAt:   s.now(),
	}
	s.presets = append(s.presets, dup)
	s.recordLocked(dup, ChangeCreated)
	return dup, true
}

// =============================================================================
// BULK OPERATIONS
// =============================================================================

// BulkDelete removes every listed preset. Unknown ids are ignored.
func (s *Store) BulkDelete(ids []string) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	s.removeLocked(set)
	s.savePresetsLocked()
	return s.snapshotLocked()
}

// BulkSetCategory assigns category to every listed preset. An empty
// category clears it.
func (s *Store) BulkSetCategory(ids []string, category string) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if i := indexOf(s.presets, id); i >= 0 {
			s.presets[i].Category = category
		}
	}
	s.savePresetsLocked()
	return s.snapshotLocked()
}

// BulkToggleFavorite flips the favorite flag of every listed preset.
func (s *Store) BulkToggleFavorite(ids []string) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.toggleFavoriteLocked(id)
	}
	s.savePresetsLocked()
	return s.snapshotLocked()
}

// BulkDuplicate duplicates the listed presets in the order given.
func (s *Store) BulkDuplicate(ids []string) []QuickPreset {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.duplicateLocked(id, "")
	}
	s.savePresetsLocked()
	s.saveHistoryLocked()
	return s.snapshotLocked()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Write failures are logged by kv.WriteJSON; the in-memory state stays
// authoritative for the rest of the session.

func (s *Store) savePresetsLocked() {
	_ = kv.WriteJSON(s.kv, kv.KeyQuickPresets, s.presets, s.logger)
}

func (s *Store) saveUsageLocked() {
	_ = kv.WriteJSON(s.kv, kv.KeyPresetUsageStats, s.usage, s.logger)
}

func (s *Store) saveHistoryLocked() {
	_ = kv.WriteJSON(s.kv, kv.KeyPresetVersionHistory, s.history, s.logger)
}

func (s *Store) saveCategoriesLocked() {
	_ = kv.WriteJSON(s.kv, kv.KeyPresetCategories, s.custom, s.logger)
}
