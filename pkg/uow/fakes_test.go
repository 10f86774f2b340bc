package uow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

type counter struct {
	domain.EventLog
	id    string
	value int
}

func newCounter(id string) *counter {
	c := &counter{id: id}
	c.Raise(counterEvent{id: id, name: "CounterCreated"})
	return c
}

func (c *counter) ModelID() string   { return c.id }
func (c *counter) ModelName() string { return "Counter" }

func (c *counter) bump() {
	c.value++
	c.Raise(counterEvent{id: c.id, name: "CounterBumped", Value: c.value})
}

type counterEvent struct {
	id    string
	name  string
	Value int `json:"value"`
}

func (e counterEvent) ModelID() string   { return e.id }
func (e counterEvent) ModelName() string { return "Counter" }
func (e counterEvent) EventName() string { return e.name }

type call struct {
	kind  ChangeKind
	model domain.Model
}

type fakePersister struct {
	mu    sync.Mutex
	calls []call
	errs  []error
}

func (p *fakePersister) next() error {
	if len(p.errs) == 0 {
		return nil
	}
	err := p.errs[0]
	p.errs = p.errs[1:]
	return err
}

func (p *fakePersister) Add(_ context.Context, _ *txn.Context, m domain.Model) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.next(); err != nil {
		return err
	}
	p.calls = append(p.calls, call{ChangeAdd, m})
	return nil
}

func (p *fakePersister) Update(_ context.Context, _ *txn.Context, m domain.Model) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.next(); err != nil {
		return err
	}
	p.calls = append(p.calls, call{ChangeUpdate, m})
	return nil
}

type fakeTransactor struct {
	mu        sync.Mutex
	now       time.Time
	begins    int
	commits   int
	rollbacks int
}

func (f *fakeTransactor) Run(ctx context.Context, mode txn.Propagation, fn func(context.Context, *txn.Context) error) error {
	if mode == txn.JoinExisting {
		if tc, ok := txn.FromContext(ctx); ok {
			return fn(ctx, tc)
		}
	}
	f.mu.Lock()
	f.begins++
	f.mu.Unlock()

	tc := txn.NewContext(f.now, nil)
	err := fn(txn.WithContext(ctx, tc), tc)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written []*events.UowEvent
	byKey   map[domain.IdempotencyKey]uuid.UUID
	err     error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{byKey: map[domain.IdempotencyKey]uuid.UUID{}}
}

func (w *fakeWriter) Add(_ context.Context, _ *txn.Context, ev *events.UowEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if !ev.IdempotencyKey.IsZero() {
		if _, dup := w.byKey[ev.IdempotencyKey]; dup {
			return &events.DuplicateError{Key: ev.IdempotencyKey, Err: errors.New("unique violation")}
		}
		w.byKey[ev.IdempotencyKey] = ev.ID
	}
	w.written = append(w.written, ev)
	return nil
}

func (w *fakeWriter) FindByIdempotencyKey(_ context.Context, _ txn.Executor, key domain.IdempotencyKey) (*events.EnvelopeRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.byKey[key]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &events.EnvelopeRecord{ID: id, IdempotencyKey: key}, nil
}

type fakeStore struct {
	mu   sync.Mutex
	ids  map[domain.IdempotencyKey]uuid.UUID
	err  error
	hits int
}

func newFakeStore() *fakeStore { return &fakeStore{ids: map[domain.IdempotencyKey]uuid.UUID{}} }

func (s *fakeStore) Lookup(_ context.Context, key domain.IdempotencyKey) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return uuid.Nil, false, s.err
	}
	id, ok := s.ids[key]
	if ok {
		s.hits++
	}
	return id, ok, nil
}

func (s *fakeStore) Remember(_ context.Context, key domain.IdempotencyKey, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[key] = id
	return nil
}

type bumpParams struct {
	Counter string `json:"counter"`
	Times   int    `json:"times"`
	Keyed
}

func (p bumpParams) Validate() error {
	if p.Times < 0 {
		return errors.New("times must not be negative")
	}
	return nil
}
