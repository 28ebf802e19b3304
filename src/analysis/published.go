package analysis

import (
	"slices"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Published holds the last ranked list an engine produced. Store swaps the
// whole list atomically; readers see either the previous list or the new one.
// -----------------------------------------------------------------------------

type Published[T any] struct {
	items   atomic.Pointer[[]T]
	version atomic.Int64
}

// -----------------------------------------------------------------------------

// Store publishes items. The caller must not modify items afterwards.
func (p *Published[T]) Store(items []T) {
	if items == nil {
		items = []T{}
	}
	p.items.Store(&items)
	p.version.Add(1)
}

// -----------------------------------------------------------------------------

// Load returns a copy of the last published list (empty before the first Store).
func (p *Published[T]) Load() []T {
	ptr := p.items.Load()
	if ptr == nil {
		return []T{}
	}
	return slices.Clone(*ptr)
}

// -----------------------------------------------------------------------------

// Version counts Store calls; 0 means nothing was ever published.
func (p *Published[T]) Version() int64 {
	return p.version.Load()
}
