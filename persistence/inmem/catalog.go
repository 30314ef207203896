// Package inmem provides in-process reference implementations of the
// catalog and order store boundaries.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/flarexio/deliblade"
)

type catalogEntry struct {
	item *deliblade.Item

	// row lock for stock decrements, acquired via LockItems
	row sync.Mutex
}

type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*catalogEntry
}

func NewCatalog(items ...*deliblade.Item) *Catalog {
	c := &Catalog{
		entries: make(map[string]*catalogEntry),
	}

	for _, it := range items {
		c.UpsertItem(it)
	}

	return c
}

// UpsertItem inserts or replaces an item.
func (c *Catalog) UpsertItem(it *deliblade.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[it.ID]
	if !ok {
		c.entries[it.ID] = &catalogEntry{item: cloneItem(it)}
		return
	}

	entry.item = cloneItem(it)
}

// RemoveItem deletes an item from the catalog.
func (c *Catalog) RemoveItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

func (c *Catalog) Item(ctx context.Context, id string) (*deliblade.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, deliblade.ErrItemNotFound
	}

	return cloneItem(entry.item), nil
}

func (c *Catalog) ActiveItems(ctx context.Context) ([]*deliblade.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]*deliblade.Item, 0, len(c.entries))
	for _, entry := range c.entries {
		if !entry.item.Active || !entry.item.Public {
			continue
		}

		items = append(items, cloneItem(entry.item))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return items, nil
}

func (c *Catalog) Stock(ctx context.Context, id string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return 0, deliblade.ErrItemNotFound
	}

	return entry.item.Quantity, nil
}

func (c *Catalog) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return deliblade.ErrValidation
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return deliblade.ErrItemNotFound
	}

	if entry.item.Quantity < qty {
		return deliblade.ErrInsufficientStock
	}

	entry.item.Quantity -= qty
	return nil
}

// LockItems acquires row locks in ascending ID order. Unknown IDs are
// skipped; the quantity re-check under lock catches them.
func (c *Catalog) LockItems(ids []string) (release func()) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	c.mu.RLock()
	locked := make([]*catalogEntry, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, id := range sorted {
		if seen[id] {
			continue
		}
		seen[id] = true

		entry, ok := c.entries[id]
		if !ok {
			continue
		}

		locked = append(locked, entry)
	}
	c.mu.RUnlock()

	for _, entry := range locked {
		entry.row.Lock()
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].row.Unlock()
		}
	}
}

func cloneItem(it *deliblade.Item) *deliblade.Item {
	clone := *it
	if it.Aliases != nil {
		clone.Aliases = make([]string, len(it.Aliases))
		copy(clone.Aliases, it.Aliases)
	}
	return &clone
}
