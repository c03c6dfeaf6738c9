package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// TempID returns a placeholder id for an optimistic insert. It is replaced
// with the server-assigned id when the remote call succeeds.
func TempID() string {
	return fmt.Sprintf("temp-%d", time.Now().UnixNano())
}

// IsTempID reports whether id is a placeholder from TempID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, "temp-")
}

// Collection is an in-memory entity list with optimistic mutation semantics:
// every edit is applied locally first, then confirmed remotely, and rolled
// back to the exact pre-change list (same elements, same order) when the
// remote call fails. There is no retry and no queueing; a failed mutation is
// simply undone.
type Collection[T any] struct {
	mu    sync.Mutex
	items []T
	id    func(T) string
}

// NewCollection creates a collection keyed by the given id extractor
func NewCollection[T any](id func(T) string) *Collection[T] {
	return &Collection[T]{id: id}
}

// Replace resets the collection from a fresh server read
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
}

// Items returns a copy of the current list
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the current list length
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Get returns the entity with the given id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if c.id(item) == id {
			return i
		}
	}
	return -1
}

// Insert appends item optimistically, then issues the remote create. On
// success the placeholder is swapped for the server's version (reconciling a
// TempID with the assigned id); on failure the append is undone.
//
// The lock is not held across the remote call, so reads stay responsive
// while the mutation is in flight.
func (c *Collection[T]) Insert(ctx context.Context, item T, remote func(context.Context) (T, error)) (T, error) {
	tempID := c.id(item)

	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()

	created, err := remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(tempID)
	if err != nil {
		if idx >= 0 {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
		}
		var zero T
		return zero, err
	}
	if idx >= 0 {
		c.items[idx] = created
	}
	return created, nil
}

// Update applies mutate to the entity optimistically, then issues the remote
// update. On success the server's version replaces the local guess; on
// failure the original entity is restored at its original position.
func (c *Collection[T]) Update(ctx context.Context, id string, mutate func(T) T, remote func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return zero, fmt.Errorf("entity %s not in collection", id)
	}
	before := c.items[idx]
	c.items[idx] = mutate(before)
	c.mu.Unlock()

	updated, err := remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	idx = c.indexOf(id)
	if err != nil {
		if idx >= 0 {
			c.items[idx] = before
		}
		return zero, err
	}
	if idx >= 0 {
		c.items[idx] = updated
	}
	return updated, nil
}

// Delete removes the entity optimistically, then issues the remote delete.
// On failure the entity is reinserted at its original position.
func (c *Collection[T]) Delete(ctx context.Context, id string, remote func(context.Context) error) error {
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("entity %s not in collection", id)
	}
	removed := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.mu.Unlock()

	err := remote(ctx)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx > len(c.items) {
		idx = len(c.items)
	}
	c.items = append(c.items[:idx], append([]T{removed}, c.items[idx:]...)...)
	return err
}

// Reorder permutes the list to match ids, then issues the batched remote
// reorder. The id list must be an exact permutation of the current
// collection; on remote failure the previous order is restored.
func (c *Collection[T]) Reorder(ctx context.Context, ids []string, remote func(context.Context) error) error {
	c.mu.Lock()
	if len(ids) != len(c.items) {
		c.mu.Unlock()
		return fmt.Errorf("reorder list has %d ids, collection has %d", len(ids), len(c.items))
	}
	byID := make(map[string]T, len(c.items))
	for _, item := range c.items {
		byID[c.id(item)] = item
	}
	permuted := make([]T, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("reorder id %s not in collection", id)
		}
		permuted = append(permuted, item)
		delete(byID, id)
	}
	before := c.items
	c.items = permuted
	c.mu.Unlock()

	err := remote(ctx)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	c.items = before
	c.mu.Unlock()
	return err
}
