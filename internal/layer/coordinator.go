// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package layer

import (
	"io"
	"log"
	"sort"
	"sync"
)

// =============================================================================
// COORDINATOR
// =============================================================================

// NotifyFunc receives a surface's new stacking value after it changed.
type NotifyFunc func(z int)

type element struct {
	id     string
	cat    Category
	order  uint64
	z      int
	notify NotifyFunc
}

// Coordinator assigns stacking values to registered surfaces.
// It is safe for concurrent use; callbacks run after the lock is released.
type Coordinator struct {
	mu        sync.Mutex
	table     Table
	elements  map[string]*element
	lastOrder uint64
	logger    *log.Logger
}

// Entry is a read-only view of one registered surface.
type Entry struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Order    uint64   `json:"order"`
	Z        int      `json:"z"`
}

// New creates a coordinator using the default bands.
func New(logger *log.Logger) *Coordinator {
	c, _ := NewWithTable(DefaultTable(), logger)
	return c
}

// NewWithTable creates a coordinator with custom bands. The table must pass
// Validate.
func NewWithTable(table Table, logger *log.Logger) (*Coordinator, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	copied := make(Table, len(table))
	for c, b := range table {
		copied[c] = b
	}
	return &Coordinator{
		table:    copied,
		elements: make(map[string]*element),
		logger:   logger,
	}, nil
}

// Register adds a surface and returns its stacking value. Registering an id
// that is already present returns its current value and leaves its order
// alone. An invalid category is logged and yields 0.
func (c *Coordinator) Register(id string, cat Category) int {
	return c.RegisterWithNotify(id, cat, nil)
}

// RegisterWithNotify is Register with a callback that fires whenever the
// surface's stacking value changes later on. For an already registered id a
// non-nil fn replaces the previous callback.
func (c *Coordinator) RegisterWithNotify(id string, cat Category, fn NotifyFunc) int {
	c.mu.Lock()

	if el, ok := c.elements[id]; ok {
		if fn != nil {
			el.notify = fn
		}
		z := el.z
		c.mu.Unlock()
		return z
	}

	if !cat.Valid() {
		c.mu.Unlock()
		c.logger.Printf("LAYER_INVALID_CATEGORY | id=%s category=%d", id, int(cat))
		return 0
	}

	el := &element{id: id, cat: cat, order: c.nextOrderLocked(), notify: fn}
	c.elements[id] = el
	pending := c.recomputeLocked(cat, el)
	z := el.z
	c.mu.Unlock()

	fire(pending)
	return z
}

// Unregister removes a surface. Unknown ids are ignored.
func (c *Coordinator) Unregister(id string) {
	c.mu.Lock()
	el, ok := c.elements[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.elements, id)
	pending := c.recomputeLocked(el.cat, nil)
	c.mu.Unlock()

	fire(pending)
}

// BringToFront gives the surface a newer interaction order than any issued
// before and returns its new stacking value. An unknown id is logged as
// misuse and yields 0.
func (c *Coordinator) BringToFront(id string) int {
	c.mu.Lock()
	el, ok := c.elements[id]
	if !ok {
		c.mu.Unlock()
		c.logger.Printf("LAYER_UNKNOWN_ID | op=bring_to_front id=%s", id)
		return 0
	}
	el.order = c.nextOrderLocked()
	pending := c.recomputeLocked(el.cat, el)
	z := el.z
	c.mu.Unlock()

	fire(pending)
	return z
}

// ZIndex returns the surface's stacking value, or 0 if it is not registered.
func (c *Coordinator) ZIndex(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[id]
	if !ok {
		return 0
	}
	return c.computeLocked(el)
}

// IsRegistered reports whether id is currently registered.
func (c *Coordinator) IsRegistered(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.elements[id]
	return ok
}

// Len returns the number of registered surfaces.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.elements)
}

// Snapshot returns every registered surface ordered from bottom to top.
func (c *Coordinator) Snapshot() []Entry {
	c.mu.Lock()
	entries := make([]Entry, 0, len(c.elements))
	for _, el := range c.elements {
		entries = append(entries, Entry{ID: el.id, Category: el.cat, Order: el.order, Z: el.z})
	}
	c.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Z != entries[j].Z {
			return entries[i].Z < entries[j].Z
		}
		return entries[i].Order < entries[j].Order
	})
	return entries
}

// Table returns a copy of the coordinator's bands.
func (c *Coordinator) Table() Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make(Table, len(c.table))
	for cat, b := range c.table {
		copied[cat] = b
	}
	return copied
}

// Reset drops every registration and restarts the order counter.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements = make(map[string]*element)
	c.lastOrder = 0
}

// =============================================================================
// STACK VALUE COMPUTATION
// =============================================================================

func (c *Coordinator) nextOrderLocked() uint64 {
	c.lastOrder++
	return c.lastOrder
}

// sameCategoryLocked returns the category's surfaces by ascending order.
func (c *Coordinator) sameCategoryLocked(cat Category) []*element {
	var peers []*element
	for _, el := range c.elements {
		if el.cat == cat {
			peers = append(peers, el)
		}
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].order < peers[j].order })
	return peers
}

// computeLocked returns base + min(rank, span) for el.
func (c *Coordinator) computeLocked(el *element) int {
	peers := c.sameCategoryLocked(el.cat)
	rank := 0
	for i, p := range peers {
		if p == el {
			rank = i
			break
		}
	}
	return c.valueAt(el.cat, rank)
}

func (c *Coordinator) valueAt(cat Category, rank int) int {
	band := c.table[cat]
	offset := rank
	if offset > band.Span {
		offset = band.Span
	}
	return band.Base + offset
}

type notification struct {
	fn NotifyFunc
	z  int
}

// recomputeLocked refreshes cached values for a category and collects the
// callbacks to fire. The caller-facing element (self) is not notified since
// it receives its value as the return value.
func (c *Coordinator) recomputeLocked(cat Category, self *element) []notification {
	var pending []notification
	for rank, el := range c.sameCategoryLocked(cat) {
		z := c.valueAt(cat, rank)
		if z == el.z {
			continue
		}
		el.z = z
		if el.notify != nil && el != self {
			pending = append(pending, notification{fn: el.notify, z: z})
		}
	}
	return pending
}

func fire(pending []notification) {
	for _, n := range pending {
		n.fn(n.z)
	}
}
