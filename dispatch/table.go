package dispatch

import (
	"maps"
	"slices"
)

// Table is the frozen mapping from wire name to entry. It is never modified
// after Build and is safe for concurrent use without locking.
type Table struct {
	entries map[string]Entry
}

// Lookup returns the entry registered under name.
func (t *Table) Lookup(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Names returns the wire names in sorted order.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}
