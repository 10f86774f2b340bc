// Package uowtest replays the changes recorded by a unit of work so tests
// can assert them one at a time, in order, without a database.
package uowtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

// peekingPersister holds the single model handed to it until peeked.
type peekingPersister struct {
	current domain.Model
}

func (p *peekingPersister) Add(_ context.Context, _ *txn.Context, m domain.Model) error {
	return p.hold(m)
}

func (p *peekingPersister) Update(_ context.Context, _ *txn.Context, m domain.Model) error {
	return p.hold(m)
}

func (p *peekingPersister) hold(m domain.Model) error {
	if p.current != nil {
		return fmt.Errorf("uowtest: model %s not peeked", p.current.ModelID())
	}
	p.current = m
	return nil
}

func (p *peekingPersister) peek() domain.Model {
	m := p.current
	p.current = nil
	return m
}

// Spec replays Changes. Create it with New and consume it with the Verify
// functions; finish with VerifyEnd.
type Spec[R any] struct {
	t         testing.TB
	result    R
	history   []uow.Change
	published []domain.ModelEvent
	persister *peekingPersister
	tc        *txn.Context
}

// New snapshots changes without consuming them.
func New[R any](t testing.TB, changes *uow.Changes[R]) *Spec[R] {
	t.Helper()
	require.NotNil(t, changes, "changes")
	return &Spec[R]{
		t:         t,
		result:    changes.Result(),
		history:   changes.List(),
		published: changes.ModelEvents(),
		persister: &peekingPersister{},
		tc:        txn.NewContext(time.Now().UTC(), nil),
	}
}

// VerifyResult hands the block's result to verify.
func (s *Spec[R]) VerifyResult(verify func(R)) {
	verify(s.result)
}

// VerifyAdded expects the next change to add a model of type M.
func VerifyAdded[M domain.Model, R any](s *Spec[R], verify func(M)) M {
	s.t.Helper()
	return next[M](s, uow.ChangeAdd, verify)
}

// VerifyUpdated expects the next change to update a model of type M.
func VerifyUpdated[M domain.Model, R any](s *Spec[R], verify func(M)) M {
	s.t.Helper()
	return next[M](s, uow.ChangeUpdate, verify)
}

// VerifyEmitted expects the next published event to be of type E.
func VerifyEmitted[E domain.ModelEvent, R any](s *Spec[R], verify func(E)) E {
	s.t.Helper()
	require.NotEmpty(s.t, s.published, "expecting [ModelEvent] got nothing")
	ev := s.published[0]
	s.published = s.published[1:]

	typed, ok := ev.(E)
	require.Truef(s.t, ok, "expecting event %T was %T", *new(E), ev)
	if verify != nil {
		verify(typed)
	}
	return typed
}

// VerifyEnd fails unless every change and event was verified.
func (s *Spec[R]) VerifyEnd() {
	s.t.Helper()
	require.Empty(s.t, s.history, "no more changes expected")
	require.Empty(s.t, s.published, "no more events expected")
}

func next[M domain.Model, R any](s *Spec[R], kind uow.ChangeKind, verify func(M)) M {
	s.t.Helper()
	require.NotEmptyf(s.t, s.history, "expecting [%s] got nothing", kind)
	change := s.history[0]
	s.history = s.history[1:]

	require.Equalf(s.t, kind, change.Kind(), "expecting [%s] was [%s]", kind, change)
	require.NoError(s.t, change.Persist(context.Background(), s.tc, s.persister))

	model, ok := s.persister.peek().(M)
	require.Truef(s.t, ok, "expecting model %T was %T", *new(M), change.Model())
	if verify != nil {
		verify(model)
	}
	return model
}
