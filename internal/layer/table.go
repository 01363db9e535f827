// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package layer

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// Category is the class of a floating surface. Categories are totally
// ordered: later constants always stack above earlier ones.
type Category int

const (
	Floating Category = iota
	Dropdown
	Popover
	Modal
	Toast
)

// Categories lists every category from lowest to highest.
var Categories = []Category{Floating, Dropdown, Popover, Modal, Toast}

var categoryNames = map[Category]string{
	Floating: "floating",
	Dropdown: "dropdown",
	Popover:  "popover",
	Modal:    "modal",
	Toast:    "toast",
}

// String returns the lowercase category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory maps a name such as "modal" to its Category.
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// OFFSET TABLE
// =============================================================================

// Band is the range of stacking values owned by one category:
// Base through Base+Span inclusive.
type Band struct {
	Base int
	Span int
}

// Table holds the band of every category.
type Table map[Category]Band

// DefaultSpan is the largest offset a surface can get above its base.
const DefaultSpan = 49

// DefaultTable returns the standard bands:
// floating 200, dropdown 250, popover 300, modal 400, toast 500.
func DefaultTable() Table {
	return Table{
		Floating: {Base: 200, Span: DefaultSpan},
		Dropdown: {Base: 250, Span: DefaultSpan},
		Popover:  {Base: 300, Span: DefaultSpan},
		Modal:    {Base: 400, Span: DefaultSpan},
		Toast:    {Base: 500, Span: DefaultSpan},
	}
}

var (
	// ErrUnknownCategory is returned for category names or values that are
	// not defined.
	ErrUnknownCategory = errors.New("unknown layer category")
	// ErrOverlappingBands is returned when a table lets one category reach
	// the next category's base.
	ErrOverlappingBands = errors.New("layer bands overlap")
)

// Validate checks that every category has a band, bases ascend with the
// category order, and no band reaches the next category's base.
func (t Table) Validate() error {
	for i, c := range Categories {
		band, ok := t[c]
		if !ok {
			return fmt.Errorf("%w: no band for %s", ErrUnknownCategory, c)
		}
		if band.Span < 0 {
			return fmt.Errorf("%s: span must not be negative", c)
		}
		if i == 0 {
			continue
		}
		prev := Categories[i-1]
		prevBand := t[prev]
		if prevBand.Base+prevBand.Span >= band.Base {
			return fmt.Errorf("%w: %s tops out at %d, %s starts at %d",
				ErrOverlappingBands, prev, prevBand.Base+prevBand.Span, c, band.Base)
		}
	}
	return nil
}
