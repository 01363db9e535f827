// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidImport is returned when an import payload has no presets array.
	ErrInvalidImport = errors.New("invalid preset import")
	// ErrInvalidShare is returned when a share URL cannot be decoded.
	ErrInvalidShare = errors.New("invalid preset share link")
)

// ExportVersion is written into every export envelope.
const ExportVersion = "1.0"

// ShareFragment is the URL fragment key holding a shared preset.
const ShareFragment = "preset"

// =============================================================================
// EXPORT
// =============================================================================

// ExportedPreset holds the lineage-independent fields of a preset. Ids,
// timestamps and usage are never exported.
type ExportedPreset struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Models      []string   `json:"models" yaml:"models"`
	SourceType  SourceType `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	SourceID    string     `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	IsFavorite  bool       `json:"isFavorite,omitempty" yaml:"isFavorite,omitempty"`
}

// ExportEnvelope is the document produced by Export.
type ExportEnvelope struct {
	Version    string           `json:"version" yaml:"version"`
	ExportedAt time.Time        `json:"exportedAt" yaml:"exportedAt"`
	Presets    []ExportedPreset `json:"presets" yaml:"presets"`
}

// NewEnvelope wraps presets for export.
func NewEnvelope(presets []QuickPreset, now time.Time) ExportEnvelope {
	env := ExportEnvelope{
		Version:    ExportVersion,
		ExportedAt: now.UTC(),
		Presets:    make([]ExportedPreset, 0, len(presets)),
	}
	for _, p := range presets {
		env.Presets = append(env.Presets, ExportedPreset{
			Name:        p.Name,
			Description: p.Description,
			Models:      cloneModels(p.Models),
			SourceType:  p.SourceType,
			SourceID:    p.SourceID,
			IsFavorite:  p.IsFavorite,
		})
	}
	return env
}

// Export serializes presets as indented JSON.
func Export(presets []QuickPreset, now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(NewEnvelope(presets, now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// ExportYAML serializes presets as YAML.
func ExportYAML(presets []QuickPreset, now time.Time) ([]byte, error) {
	data, err := yaml.Marshal(NewEnvelope(presets, now))
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportedPreset is one preset read from an export document.
type ImportedPreset struct {
	Spec
	IsFavorite bool `json:"isFavorite"`
}

// ParseImport reads a JSON export document. It fails with ErrInvalidImport
// unless the top level is an object with a presets array.
func ParseImport(data []byte) ([]ImportedPreset, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	list, ok := raw["presets"]
	if !ok {
		return nil, fmt.Errorf("%w: missing presets", ErrInvalidImport)
	}
	var items []ExportedPreset
	if err := json.Unmarshal(list, &items); err != nil || items == nil {
		return nil, fmt.Errorf("%w: presets is not an array", ErrInvalidImport)
	}
	return importedFrom(items), nil
}

// ParseImportYAML reads a YAML export document.
func ParseImportYAML(data []byte) ([]ImportedPreset, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	node, ok := raw["presets"]
	if !ok || node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: missing presets", ErrInvalidImport)
	}
	var items []ExportedPreset
	if err := node.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return importedFrom(items), nil
}

func importedFrom(items []ExportedPreset) []ImportedPreset {
	out := make([]ImportedPreset, 0, len(items))
	for _, it := range items {
		sourceType := it.SourceType
		if sourceType == "" {
			sourceType = SourceCustom
		}
		out = append(out, ImportedPreset{
			Spec: Spec{
				Name:        it.Name,
				Description: it.Description,
				Models:      cloneModels(it.Models),
				SourceID:    it.SourceID,
				SourceType:  sourceType,
			},
			IsFavorite: it.IsFavorite,
		})
	}
	return out
}

// Import appends the imported presets with fresh ids and creation times
// and reports how many were added. Unlike Add, the favorite flag from the
// document is kept. Items without a name or models are skipped and logged.
func (s *Store) Import(items []ImportedPreset) ([]QuickPreset, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for i, it := range items {
		if err := it.Spec.Validate(); err != nil {
			s.logger.Printf("PRESET_IMPORT_SKIPPED | index=%d name=%q error=%v", i, it.Spec.Name, err)
			continue
		}
		s.addLocked(it.Spec, it.IsFavorite)
		added++
	}
	if added > 0 {
		s.savePresetsLocked()
		s.saveHistoryLocked()
	}
	return s.snapshotLocked(), added
}

// Export serializes the listed presets, or all of them when ids is empty.
// Unknown ids are skipped.
func (s *Store) Export(ids []string) ([]byte, error) {
	s.mu.Lock()
	selected := s.selectLocked(ids)
	now := s.now()
	s.mu.Unlock()
	return Export(selected, now)
}

// ExportYAML is Export in YAML form.
func (s *Store) ExportYAML(ids []string) ([]byte, error) {
	s.mu.Lock()
	selected := s.selectLocked(ids)
	now := s.now()
	s.mu.Unlock()
	return ExportYAML(selected, now)
}

func (s *Store) selectLocked(ids []string) []QuickPreset {
	if len(ids) == 0 {
		return cloneAll(s.presets)
	}
	out := make([]QuickPreset, 0, len(ids))
	for _, id := range ids {
		if i := indexOf(s.presets, id); i >= 0 {
			out = append(out, s.presets[i].Clone())
		}
	}
	return out
}

// =============================================================================
// SHARING
// =============================================================================

// Shared is the content carried by a share link.
type Shared struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Models      []string `json:"models"`
}

// Spec converts a shared preset into a creation spec.
func (sh Shared) Spec() Spec {
	return Spec{
		Name:        sh.Name,
		Description: sh.Description,
		Models:      cloneModels(sh.Models),
		SourceType:  SourceCustom,
	}
}

// ShareURL embeds p's name, description and models into the fragment of
// base as unpadded base64url JSON.
func ShareURL(base string, p QuickPreset) (string, error) {
	data, err := json.Marshal(Shared{
		Name:        p.Name,
		Description: p.Description,
		Models:      cloneModels(p.Models),
	})
	if err != nil {
		return "", fmt.Errorf("encode share: %w", err)
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#" + ShareFragment + "=" + base64.RawURLEncoding.EncodeToString(data), nil
}

// ParseShareURL decodes a link made by ShareURL. A bare encoded payload is
// accepted as well. Any decode error or a missing name or models array
// yields ErrInvalidShare.
func ParseShareURL(raw string) (Shared, error) {
	payload := strings.TrimSpace(raw)
	if strings.Contains(payload, "#") || strings.Contains(payload, "://") {
		u, err := url.Parse(payload)
		if err != nil {
			return Shared{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
		}
		values, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return Shared{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
		}
		payload = values.Get(ShareFragment)
	}
	if payload == "" {
		return Shared{}, fmt.Errorf("%w: no preset in link", ErrInvalidShare)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return Shared{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}

	var fields struct {
		Name        *string   `json:"name"`
		Description string    `json:"description"`
		Models      *[]string `json:"models"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Shared{}, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}
	if fields.Name == nil || strings.TrimSpace(*fields.Name) == "" {
		return Shared{}, fmt.Errorf("%w: missing name", ErrInvalidShare)
	}
	if fields.Models == nil || *fields.Models == nil {
		return Shared{}, fmt.Errorf("%w: missing models", ErrInvalidShare)
	}
	return Shared{
		Name:        *fields.Name,
		Description: fields.Description,
		Models:      *fields.Models,
	}, nil
}

// ShareURL builds a share link for one preset of the store.
func (s *Store) ShareURL(base, id string) (string, error) {
	p, ok := s.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ShareURL(base, p)
}

// CreateFromTemplate adds a preset built from the template with the given
// id. An empty name uses the template name.
func (s *Store) CreateFromTemplate(templateID, name string) (QuickPreset, error) {
	tpl, err := FindTemplate(templateID)
	if err != nil {
		return QuickPreset{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.addLocked(tpl.Spec(name), false)
	s.savePresetsLocked()
	s.saveHistoryLocked()
	return s.usage.apply(p.Clone()), nil
}
