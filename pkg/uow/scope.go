package uow

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

// Scope collects the changes of one changes block. It is only valid while
// the block passed to Record runs.
type Scope struct {
	mu      sync.Mutex
	closed  bool
	changes []Change
}

// Record runs fn with a fresh Scope and packages what it recorded. If fn
// fails, nothing is returned.
func Record[R any](ctx context.Context, fn func(ctx context.Context, s *Scope) (R, error)) (*Changes[R], error) {
	s := &Scope{}
	result, err := func() (R, error) {
		defer s.close()
		return fn(ctx, s)
	}()
	if err != nil {
		return nil, err
	}
	return newChanges(result, s.changes), nil
}

// Add records m as a new model and returns it unchanged.
func Add[M domain.Model](s *Scope, m M) M {
	s.record("add", ChangeAdd, m)
	return m
}

// Update records m as a modified model and returns it unchanged.
func Update[M domain.Model](s *Scope, m M) M {
	s.record("update", ChangeUpdate, m)
	return m
}

// Noop records nothing. It lets a block state that a branch changes no
// model.
func (s *Scope) Noop() {
	s.record("noop", ChangeNoop, nil)
}

func (s *Scope) record(op string, kind ChangeKind, m domain.Model) {
	if s == nil {
		panic(&UsageError{Op: op, Err: ErrNoScope})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic(&UsageError{Op: op, Err: ErrScopeClosed})
	}
	if kind == ChangeNoop {
		return
	}
	if isNilValue(m) {
		panic(&UsageError{Op: op, Err: ErrNilModel})
	}
	// Taking the events here means later mutations of m are not captured.
	s.changes = append(s.changes, Change{kind: kind, model: m, events: m.TakeEvents()})
}

func (s *Scope) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
