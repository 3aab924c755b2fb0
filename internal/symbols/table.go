// Package symbols provides a generic offset keyed symbol table with tracking
// of referenced offsets.
package symbols

import (
	"sort"

	"github.com/retroenv/retrogolib/set"
	"golang.org/x/exp/constraints"
)

// Table maps offsets to items.
// K is the offset type, T is the type of the item being managed.
type Table[K constraints.Integer, T any] struct {
	items map[K]T
	used  set.Set[K]
}

// New creates a new symbol table.
func New[K constraints.Integer, T any]() *Table[K, T] {
	return &Table[K, T]{
		items: make(map[K]T),
		used:  set.New[K](),
	}
}

// Get returns the item at the given offset.
func (t *Table[K, T]) Get(offset K) (T, bool) {
	item, ok := t.items[offset]
	return item, ok
}

// Set sets the item at the given offset.
func (t *Table[K, T]) Set(offset K, item T) {
	t.items[offset] = item
}

// Has returns whether an item exists at the given offset.
func (t *Table[K, T]) Has(offset K) bool {
	_, ok := t.items[offset]
	return ok
}

// Delete removes the item at the given offset.
func (t *Table[K, T]) Delete(offset K) {
	delete(t.items, offset)
}

// Len returns the number of items in the table.
func (t *Table[K, T]) Len() int {
	return len(t.items)
}

// Offsets returns all offsets in ascending order.
func (t *Table[K, T]) Offsets() []K {
	offsets := make([]K, 0, len(t.items))
	for offset := range t.items {
		offsets = append(offsets, offset)
	}
	sort.Slice(offsets, func(i, j int) bool {
		return offsets[i] < offsets[j]
	})
	return offsets
}

// Sorted returns all items ordered by their offset.
func (t *Table[K, T]) Sorted() []T {
	offsets := t.Offsets()
	items := make([]T, len(offsets))
	for i, offset := range offsets {
		items[i] = t.items[offset]
	}
	return items
}

// Reset removes all items and used markers.
func (t *Table[K, T]) Reset() {
	t.items = make(map[K]T)
	t.used = set.New[K]()
}

// MarkUsed marks an offset as referenced.
func (t *Table[K, T]) MarkUsed(offset K) {
	t.used.Add(offset)
}

// IsUsed returns whether an offset is marked as referenced.
func (t *Table[K, T]) IsUsed(offset K) bool {
	return t.used.Contains(offset)
}
