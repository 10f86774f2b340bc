package persistence

import (
	"context"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

// Writable writes single models outside any unit of work, each in its own
// RequireNew transaction. It is meant for seeding fixtures. Pending model
// events are dropped, not published.
type Writable struct {
	transactor txn.Transactor
	registry   *Registry
}

func NewWritable(t txn.Transactor, r *Registry) *Writable {
	return &Writable{transactor: t, registry: r}
}

func (w *Writable) Add(ctx context.Context, m domain.Model) error {
	return w.transactor.Run(ctx, txn.RequireNew, func(ctx context.Context, tc *txn.Context) error {
		if err := w.registry.Add(ctx, tc, m); err != nil {
			return err
		}
		m.TakeEvents()
		return nil
	})
}

func (w *Writable) Update(ctx context.Context, m domain.Model) error {
	return w.transactor.Run(ctx, txn.RequireNew, func(ctx context.Context, tc *txn.Context) error {
		if err := w.registry.Update(ctx, tc, m); err != nil {
			return err
		}
		m.TakeEvents()
		return nil
	})
}
