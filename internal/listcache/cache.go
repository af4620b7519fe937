package listcache

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Load when a newer Load was issued while this
// one was in flight. The result was discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader fetches the full collection.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Predicate reports whether item passes filter.
type Predicate[T, F any] func(item T, filter F) bool

// Snapshot is a point-in-time copy of a Cache.
type Snapshot[T, F any] struct {
	Items   []T // full cached collection
	Visible []T // Items after the filter, same order
	Filter  F
	Loading bool
	Loaded  bool // at least one Load succeeded
	Err     error
}

// Empty reports whether the cache itself holds nothing, as opposed to the
// filter hiding everything.
func (s Snapshot[T, F]) Empty() bool {
	return len(s.Items) == 0
}

// NoMatches reports whether data exists but the filter hides all of it.
func (s Snapshot[T, F]) NoMatches() bool {
	return len(s.Items) > 0 && len(s.Visible) == 0
}

// Cache holds the last full fetch of one collection for one screen and
// derives the filtered view locally.
type Cache[T, F any] struct {
	load  Loader[T]
	match Predicate[T, F]

	mu         sync.Mutex
	items      []T
	filter     F
	loading    bool
	loaded     bool
	err        error
	generation uint64
}

// New returns an empty Cache.
func New[T, F any](load Loader[T], match Predicate[T, F]) *Cache[T, F] {
	return &Cache[T, F]{load: load, match: match}
}

// Load fetches the collection and replaces the cache wholesale. On failure the
// previous items are kept and the error is recorded. Only the most recently
// issued Load may apply its result.
func (c *Cache[T, F]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	c.loading = false
	if err != nil {
		c.err = err
		return err
	}
	c.items = cloneSlice(items)
	c.loaded = true
	return nil
}

// SetFilter merges a partial change into the current filter. It never fetches.
func (c *Cache[T, F]) SetFilter(patch func(*F)) {
	if patch == nil {
		return
	}
	c.mu.Lock()
	patch(&c.filter)
	c.mu.Unlock()
}

// ClearFilters resets every predicate to unconstrained.
func (c *Cache[T, F]) ClearFilters() {
	c.mu.Lock()
	var zero F
	c.filter = zero
	c.mu.Unlock()
}

// Reset empties the cache and its filter. A Load still in flight returns
// ErrSuperseded and leaves the reset state alone.
func (c *Cache[T, F]) Reset() {
	c.mu.Lock()
	var zero F
	c.generation++
	c.items = nil
	c.filter = zero
	c.loading = false
	c.loaded = false
	c.err = nil
	c.mu.Unlock()
}

// Filter returns the current filter.
func (c *Cache[T, F]) Filter() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// ClearError dismisses the last load error.
func (c *Cache[T, F]) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

// Visible returns the filtered view.
func (c *Cache[T, F]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Apply(c.items, c.filter, c.match)
}

// Snapshot returns a copy of the cache state with the filtered view applied.
func (c *Cache[T, F]) Snapshot() Snapshot[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T, F]{
		Items:   cloneSlice(c.items),
		Visible: Apply(c.items, c.filter, c.match),
		Filter:  c.filter,
		Loading: c.loading,
		Loaded:  c.loaded,
		Err:     c.err,
	}
}

// Apply returns the items that pass match, preserving order. It never
// modifies items. A nil match keeps everything.
func Apply[T, F any](items []T, filter F, match Predicate[T, F]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match == nil || match(item, filter) {
			out = append(out, item)
		}
	}
	return out
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
