package uow

import (
	"context"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

// UnitOfWork is one business operation. Changes computes what the operation
// changes; it must not write anything itself.
type UnitOfWork[P domain.Principal, I Params, R any] interface {
	Name() string
	Changes(ctx context.Context, principal P, params I) (*Changes[R], error)
}

type funcUnit[P domain.Principal, I Params, R any] struct {
	name string
	fn   func(ctx context.Context, s *Scope, principal P, params I) (R, error)
}

// Define builds a UnitOfWork whose Changes runs fn inside one Scope.
func Define[P domain.Principal, I Params, R any](name string, fn func(ctx context.Context, s *Scope, principal P, params I) (R, error)) UnitOfWork[P, I, R] {
	return funcUnit[P, I, R]{name: name, fn: fn}
}

func (u funcUnit[P, I, R]) Name() string { return u.name }

func (u funcUnit[P, I, R]) Changes(ctx context.Context, principal P, params I) (*Changes[R], error) {
	return Record(ctx, func(ctx context.Context, s *Scope) (R, error) {
		return u.fn(ctx, s, principal, params)
	})
}
