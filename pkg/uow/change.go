// Package uow runs units of work: it records the model changes of one
// business operation and persists them, with the events they raised and an
// execution envelope, in a single transaction.
package uow

import (
	"context"
	"fmt"
	"slices"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

// ModelPersisting receives recorded changes. persistence.Registry
// implements it.
type ModelPersisting interface {
	Add(ctx context.Context, tc *txn.Context, m domain.Model) error
	Update(ctx context.Context, tc *txn.Context, m domain.Model) error
}

// ChangeKind tags a Change.
type ChangeKind int

const (
	ChangeNoop ChangeKind = iota
	ChangeAdd
	ChangeUpdate
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNoop:
		return "Noop"
	case ChangeAdd:
		return "Add"
	case ChangeUpdate:
		return "Update"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is one recorded mutation and the events it raised, in order.
type Change struct {
	kind   ChangeKind
	model  domain.Model
	events []domain.ModelEvent
}

func (c Change) Kind() ChangeKind { return c.kind }

func (c Change) Model() domain.Model { return c.model }

// Events returns a copy of the events raised by the change.
func (c Change) Events() []domain.ModelEvent { return slices.Clone(c.events) }

func (c Change) String() string {
	if c.kind == ChangeNoop {
		return "Noop"
	}
	return fmt.Sprintf("%s(%s %s)", c.kind, c.model.ModelName(), c.model.ModelID())
}

// Persist hands the model to p according to the change kind.
func (c Change) Persist(ctx context.Context, tc *txn.Context, p ModelPersisting) error {
	switch c.kind {
	case ChangeAdd:
		return p.Add(ctx, tc, c.model)
	case ChangeUpdate:
		return p.Update(ctx, tc, c.model)
	default:
		return nil
	}
}
