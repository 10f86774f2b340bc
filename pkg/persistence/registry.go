// Package persistence dispatches recorded model changes to the repository
// registered for each model kind.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

var (
	ErrUnregisteredModel = errors.New("persistence: no repository registered for model")
	ErrStaleRecord       = errors.New("persistence: stale record")
	ErrNotFound          = errors.New("persistence: not found")
	ErrNilModel          = errors.New("persistence: nil model")
	// ErrConstraint marks a write refused by a business rule the database
	// enforces, such as a unique email. Repositories wrap it.
	ErrConstraint = errors.New("persistence: constraint violated")
)

// Repository writes one model kind under a transaction.
type Repository[M domain.Model] interface {
	Add(ctx context.Context, tc *txn.Context, m M) error
	// Update returns ErrStaleRecord when the stored version moved on.
	Update(ctx context.Context, tc *txn.Context, m M) error
}

// Capability is the type-erased view of a registered Repository.
type Capability interface {
	Add(ctx context.Context, tc *txn.Context, m domain.Model) error
	Update(ctx context.Context, tc *txn.Context, m domain.Model) error
}

type typed[M domain.Model] struct {
	repo Repository[M]
}

func (t typed[M]) cast(m domain.Model) (M, error) {
	mm, ok := m.(M)
	if !ok {
		var zero M
		return zero, fmt.Errorf("%w: %T", ErrUnregisteredModel, m)
	}
	return mm, nil
}

func (t typed[M]) Add(ctx context.Context, tc *txn.Context, m domain.Model) error {
	mm, err := t.cast(m)
	if err != nil {
		return err
	}
	return t.repo.Add(ctx, tc, mm)
}

func (t typed[M]) Update(ctx context.Context, tc *txn.Context, m domain.Model) error {
	mm, err := t.cast(m)
	if err != nil {
		return err
	}
	return t.repo.Update(ctx, tc, mm)
}

// Registry maps concrete model types to repositories. Registration happens
// at startup; after Seal the registry is read-only.
type Registry struct {
	mu     sync.RWMutex
	repos  map[reflect.Type]Capability
	sealed bool
	logger *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		repos:  make(map[reflect.Type]Capability),
		logger: slog.Default().With("component", "persistence"),
	}
}

// Register binds repo to the model type M. Registering a type twice, a nil
// repository, or registering after Seal is a programming error and panics.
func Register[M domain.Model](r *Registry, repo Repository[M]) {
	t := reflect.TypeFor[M]()
	if repo == nil {
		panic(fmt.Sprintf("persistence: nil repository for %s", t))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic(fmt.Sprintf("persistence: register %s after seal", t))
	}
	if _, dup := r.repos[t]; dup {
		panic(fmt.Sprintf("persistence: duplicate repository for %s", t))
	}
	r.repos[t] = typed[M]{repo: repo}
}

// Seal checks that every known model has a repository and freezes the
// registry. It leaves the registry open when something is missing.
func (r *Registry) Seal(known ...domain.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, m := range known {
		if _, ok := r.repos[reflect.TypeOf(m)]; !ok {
			errs = append(errs, fmt.Errorf("%w: %T", ErrUnregisteredModel, m))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.sealed = true
	r.logger.Debug("registry sealed", "repositories", len(r.repos))
	return nil
}

// RepositoryFor returns the repository registered for m's concrete type.
func (r *Registry) RepositoryFor(m domain.Model) (Capability, error) {
	if isNil(m) {
		return nil, ErrNilModel
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	repo, ok := r.repos[reflect.TypeOf(m)]
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnregisteredModel, m)
	}
	return repo, nil
}

// Add persists a new model through its repository.
func (r *Registry) Add(ctx context.Context, tc *txn.Context, m domain.Model) error {
	repo, err := r.RepositoryFor(m)
	if err != nil {
		return err
	}
	return repo.Add(ctx, tc, m)
}

// Update persists a modified model through its repository.
func (r *Registry) Update(ctx context.Context, tc *txn.Context, m domain.Model) error {
	repo, err := r.RepositoryFor(m)
	if err != nil {
		return err
	}
	return repo.Update(ctx, tc, m)
}

func isNil(m domain.Model) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
