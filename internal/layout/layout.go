// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/layer"
)

var (
	// ErrNotFound is returned for an unknown layout name.
	ErrNotFound = errors.New("layout not found")
	// ErrEmptyName is returned when a layout name is blank.
	ErrEmptyName = errors.New("layout name must not be empty")
	// ErrNoWindows is returned when saving a layout without windows.
	ErrNoWindows = errors.New("layout must contain at least one window")
	// ErrInvalidWindow is returned when a window id is blank or repeated.
	ErrInvalidWindow = errors.New("window id missing or repeated")
)

// Window is one chat window's saved state. Stack orders windows back to
// front: lower values are further back.
type Window struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Models    []string `json:"models,omitempty" yaml:"models,omitempty"`
	X         int      `json:"x" yaml:"x"`
	Y         int      `json:"y" yaml:"y"`
	Width     int      `json:"width" yaml:"width"`
	Height    int      `json:"height" yaml:"height"`
	Stack     int      `json:"stack" yaml:"stack"`
	Minimized bool     `json:"minimized,omitempty" yaml:"minimized,omitempty"`
}

// Layout is a named set of windows.
type Layout struct {
	Name    string    `json:"name" yaml:"name"`
	Windows []Window  `json:"windows" yaml:"windows"`
	SavedAt time.Time `json:"savedAt" yaml:"savedAt"`
}

func (l Layout) clone() Layout {
	windows := make([]Window, len(l.Windows))
	for i, w := range l.Windows {
		w.Models = append([]string(nil), w.Models...)
		windows[i] = w
	}
	l.Windows = windows
	return l
}

// Placement is where a window landed after Apply.
type Placement struct {
	Window Window `json:"window" yaml:"window"`
	Z      int    `json:"z" yaml:"z"`
}

// Stacker is the part of a layer coordinator that Apply drives.
type Stacker interface {
	Register(id string, cat layer.Category) int
	BringToFront(id string) int
	ZIndex(id string) int
}

// Options configures a Store.
type Options struct {
	KV     kv.Store
	Logger *log.Logger
	Now    func() time.Time
}

// Store keeps layouts in the windowLayoutPresets key.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	logger  *log.Logger
	now     func() time.Time
	layouts []Layout
}

// NewStore creates a store and loads saved layouts.
func NewStore(opts Options) *Store {
	s := &Store{kv: opts.KV, logger: opts.Logger, now: opts.Now}
	if s.kv == nil {
		s.kv = kv.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.Reload()
	return s
}

// Reload re-reads layouts from kv.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts = []Layout{}
	kv.ReadJSON(s.kv, kv.KeyWindowLayoutPresets, &s.layouts, s.logger)
	if s.layouts == nil {
		s.layouts = []Layout{}
	}
}

// Save stores windows under name, replacing a layout of the same name.
// Windows are kept sorted back to front.
func (s *Store) Save(name string, windows []Window) (Layout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Layout{}, ErrEmptyName
	}
	if len(windows) == 0 {
		return Layout{}, ErrNoWindows
	}
	seen := make(map[string]bool, len(windows))
	for _, w := range windows {
		if w.ID == "" || seen[w.ID] {
			return Layout{}, fmt.Errorf("%w: %q", ErrInvalidWindow, w.ID)
		}
		seen[w.ID] = true
	}

	l := Layout{Name: name, Windows: windows}.clone()
	sort.SliceStable(l.Windows, func(i, j int) bool {
		return l.Windows[i].Stack < l.Windows[j].Stack
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	l.SavedAt = s.now()
	if i := s.indexLocked(name); i >= 0 {
		s.layouts[i] = l
	} else {
		s.layouts = append(s.layouts, l)
	}
	s.saveLocked()
	return l.clone(), nil
}

// List returns all layouts in the order they were first saved.
func (s *Store) List() []Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Layout, len(s.layouts))
	for i, l := range s.layouts {
		out[i] = l.clone()
	}
	return out
}

// Get returns the named layout.
func (s *Store) Get(name string) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(name)
	if i < 0 {
		return Layout{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.layouts[i].clone(), nil
}

// Delete removes the named layout.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.layouts = append(s.layouts[:i:i], s.layouts[i+1:]...)
	s.saveLocked()
	return nil
}

// Apply registers every window of the named layout as a floating surface
// and brings them to front back to front, so the window with the highest
// Stack ends on top. Windows already registered keep their registration
// and are only restacked.
func (s *Store) Apply(name string, coord Stacker) ([]Placement, error) {
	l, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	for _, w := range l.Windows {
		coord.Register(w.ID, layer.Floating)
		coord.BringToFront(w.ID)
	}

	out := make([]Placement, len(l.Windows))
	for i, w := range l.Windows {
		out[i] = Placement{Window: w, Z: coord.ZIndex(w.ID)}
	}
	return out, nil
}

// Capture assigns Stack values to windows from their current stacking
// values, so that saving the result reproduces what is on screen.
func Capture(windows []Window, coord Stacker) []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	sort.SliceStable(out, func(i, j int) bool {
		return coord.ZIndex(out[i].ID) < coord.ZIndex(out[j].ID)
	})
	for i := range out {
		out[i].Models = append([]string(nil), out[i].Models...)
		out[i].Stack = i
	}
	return out
}

func (s *Store) indexLocked(name string) int {
	for i, l := range s.layouts {
		if strings.EqualFold(l.Name, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func (s *Store) saveLocked() {
	_ = kv.WriteJSON(s.kv, kv.KeyWindowLayoutPresets, s.layouts, s.logger)
}
