// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefaultCategory is returned when renaming or removing a default category.
	ErrDefaultCategory = errors.New("default categories cannot be changed")
	// ErrCategoryExists is returned when a category name is already taken.
	ErrCategoryExists = errors.New("category already exists")
	// ErrUnknownCategory is returned for a custom category that does not exist.
	ErrUnknownCategory = errors.New("unknown category")
)

var defaultCategories = []string{"general", "coding", "writing", "research", "creative"}

// DefaultCategories returns the built-in categories.
func DefaultCategories() []string {
	return append([]string(nil), defaultCategories...)
}

// IsDefaultCategory reports whether name is a built-in category.
func IsDefaultCategory(name string) bool {
	for _, c := range defaultCategories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Categories returns the default categories followed by custom ones.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(DefaultCategories(), s.custom...)
}

// CustomCategories returns only user-defined categories.
func (s *Store) CustomCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.custom...)
}

// AddCategory defines a new custom category.
func (s *Store) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryExistsLocked(name) {
		return fmt.Errorf("%w: %q", ErrCategoryExists, name)
	}
	s.custom = append(s.custom, name)
	s.saveCategoriesLocked()
	return nil
}

// RenameCategory renames a custom category and every preset filed under it.
func (s *Store) RenameCategory(oldName, newName string) ([]QuickPreset, error) {
	newName = strings.TrimSpace(newName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if IsDefaultCategory(oldName) {
		return s.snapshotLocked(), fmt.Errorf("%w: %q", ErrDefaultCategory, oldName)
	}
	if newName == "" {
		return s.snapshotLocked(), ErrEmptyName
	}
	i := s.customIndexLocked(oldName)
	if i < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %q", ErrUnknownCategory, oldName)
	}
	if j := s.customIndexLocked(newName); IsDefaultCategory(newName) || (j >= 0 && j != i) {
		return s.snapshotLocked(), fmt.Errorf("%w: %q", ErrCategoryExists, newName)
	}

	stored := s.custom[i]
	s.custom[i] = newName
	for j := range s.presets {
		if strings.EqualFold(s.presets[j].Category, stored) {
			s.presets[j].Category = newName
		}
	}
	s.saveCategoriesLocked()
	s.savePresetsLocked()
	return s.snapshotLocked(), nil
}

// RemoveCategory deletes a custom category. Presets filed under it keep
// the now dangling category name.
func (s *Store) RemoveCategory(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if IsDefaultCategory(name) {
		return fmt.Errorf("%w: %q", ErrDefaultCategory, name)
	}
	i := s.customIndexLocked(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	s.custom = append(s.custom[:i:i], s.custom[i+1:]...)
	s.saveCategoriesLocked()
	return nil
}

func (s *Store) categoryExistsLocked(name string) bool {
	return IsDefaultCategory(name) || s.customIndexLocked(name) >= 0
}

func (s *Store) customIndexLocked(name string) int {
	for i, c := range s.custom {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
