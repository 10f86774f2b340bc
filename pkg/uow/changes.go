package uow

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

// Changes is the outcome of a changes block: the block's result plus the
// ordered changes to persist. The changes can be persisted once.
type Changes[R any] struct {
	result R

	mu       sync.Mutex
	pending  []Change
	consumed bool
}

func newChanges[R any](result R, pending []Change) *Changes[R] {
	return &Changes[R]{result: result, pending: pending}
}

// Result returns the value produced by the changes block.
func (c *Changes[R]) Result() R { return c.result }

// Len returns the number of changes still waiting to be persisted.
func (c *Changes[R]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// List returns a copy of the pending changes without consuming them.
func (c *Changes[R]) List() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pending)
}

// ModelEvents flattens the events of all pending changes in recorded order.
func (c *Changes[R]) ModelEvents() []domain.ModelEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.ModelEvent
	for _, ch := range c.pending {
		out = append(out, ch.events...)
	}
	return out
}

// Persist moves every change, in order, into p. It stops at the first
// failure. A second call returns ErrChangesConsumed.
func (c *Changes[R]) Persist(ctx context.Context, tc *txn.Context, p ModelPersisting) error {
	c.mu.Lock()
	if c.consumed {
		c.mu.Unlock()
		return ErrChangesConsumed
	}
	c.consumed = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ch := range pending {
		if err := ch.Persist(ctx, tc, p); err != nil {
			return fmt.Errorf("persist %s: %w", ch, err)
		}
	}
	return nil
}
