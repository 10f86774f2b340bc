package uow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/idempotency"
	"github.com/Mindburn-Labs/uow/pkg/persistence"
	"github.com/Mindburn-Labs/uow/pkg/retry"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

var ErrMissingCollaborator = errors.New("uow: missing engine collaborator")

// EventWriter stores execution envelopes. events.SQLRepository implements it.
type EventWriter interface {
	Add(ctx context.Context, tc *txn.Context, ev *events.UowEvent) error
}

// EnvelopeFinder looks up the envelope committed under a key.
type EnvelopeFinder interface {
	FindByIdempotencyKey(ctx context.Context, q txn.Executor, key domain.IdempotencyKey) (*events.EnvelopeRecord, error)
}

// Observer wraps each execution. observability.Provider implements it.
type Observer interface {
	TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error))
}

type nopObserver struct{}

func (nopObserver) TrackOperation(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// Engine holds the collaborators shared by every bound unit of work.
type Engine struct {
	transactor txn.Transactor
	persister  ModelPersisting
	writer     EventWriter
	finder     EnvelopeFinder
	store      idempotency.Store
	observer   Observer
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

type EngineOption func(*Engine)

// WithEnvelopeFinder sets how prior envelopes are found, both before a keyed
// execution writes anything and after a duplicate insert. It defaults to the event writer when that implements EnvelopeFinder.
func WithEnvelopeFinder(f EnvelopeFinder) EngineOption {
	return func(e *Engine) { e.finder = f }
}

// WithIdempotencyStore enables the cache consulted before running.
func WithIdempotencyStore(s idempotency.Store) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(t txn.Transactor, p ModelPersisting, w EventWriter, opts ...EngineOption) (*Engine, error) {
	switch {
	case t == nil:
		return nil, fmt.Errorf("%w: transactor", ErrMissingCollaborator)
	case p == nil:
		return nil, fmt.Errorf("%w: model persister", ErrMissingCollaborator)
	case w == nil:
		return nil, fmt.Errorf("%w: event writer", ErrMissingCollaborator)
	}

	e := &Engine{
		transactor: t,
		persister:  p,
		writer:     w,
		store:      idempotency.Nop{},
		observer:   nopObserver{},
		logger:     slog.Default().With("component", "uow"),
		sleep:      retry.Sleep,
	}
	if f, ok := w.(EnvelopeFinder); ok {
		e.finder = f
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Runner executes one unit of work with fixed options.
type Runner[P domain.Principal, I Params, R any] struct {
	engine *Engine
	work   UnitOfWork[P, I, R]
	opts   Options
	name   string
}

// Bind attaches a unit of work to the engine. A nil engine or unit is a
// wiring error and panics.
func Bind[P domain.Principal, I Params, R any](e *Engine, w UnitOfWork[P, I, R], opts Options) *Runner[P, I, R] {
	if e == nil || w == nil {
		panic("uow: Bind requires an engine and a unit of work")
	}
	return &Runner[P, I, R]{engine: e, work: w, opts: opts, name: w.Name()}
}

func (r *Runner[P, I, R]) Name() string { return r.name }

// Execute runs the unit of work for principal with params. The changes
// block runs at most once per attempt. On success every change, its events
// and the envelope are committed together and the block's result is
// returned. Every failure is an *ExecutionError and leaves nothing behind.
func (r *Runner[P, I, R]) Execute(ctx context.Context, principal P, params I) (R, error) {
	ctx, done := r.engine.observer.TrackOperation(ctx, "uow."+r.name, attribute.String("uow.name", r.name))
	result, err := r.execute(ctx, principal, params)
	done(err)
	return result, err
}

func (r *Runner[P, I, R]) execute(ctx context.Context, principal P, params I) (R, error) {
	var zero R

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	if isNilValue(principal) {
		return zero, r.fail(KindUsage, 0, ErrNilPrincipal)
	}

	encoded, err := encodeParams(params)
	if err != nil {
		return zero, r.fail(KindSerialization, 0, err)
	}
	if err := r.validate(params, encoded); err != nil {
		return zero, r.fail(KindValidation, 0, err)
	}

	key := params.IdempotencyKey()
	if id, ok := r.cached(ctx, key); ok {
		ee := r.fail(KindConflict, 0, &events.DuplicateError{Key: key, ExistingID: id})
		ee.ExistingID = id
		return zero, ee
	}

	joined := r.joined(ctx)
	retries := r.opts.Retry.Enabled() && !joined
	var schedule []time.Duration
	if retries {
		schedule = retry.Schedule(retry.Params{Operation: r.name, Key: key.String()}, r.opts.Retry)
	}

	for attempt := 1; ; attempt++ {
		result, id, fallback, err := r.attempt(ctx, principal, params, encoded, key)
		if err == nil {
			if !joined {
				r.remember(ctx, key, id)
			}
			r.engine.logger.InfoContext(ctx, "unit of work executed",
				"uow", r.name,
				"uow_event_id", id,
				"attempts", attempt,
			)
			return result, nil
		}

		if !retries || !errors.Is(err, persistence.ErrStaleRecord) || attempt >= len(schedule) {
			return zero, r.failure(ctx, err, fallback, attempt, key)
		}

		delay := schedule[attempt]
		r.engine.logger.WarnContext(ctx, "retrying unit of work after stale record",
			"uow", r.name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if serr := r.engine.sleep(ctx, delay); serr != nil {
			return zero, r.failure(ctx, serr, KindTransient, attempt, key)
		}
	}
}

func (r *Runner[P, I, R]) attempt(ctx context.Context, principal P, params I, encoded json.RawMessage, key domain.IdempotencyKey) (R, uuid.UUID, Kind, error) {
	var zero R

	changes, err := r.changes(ctx, principal, params)
	if err != nil {
		return zero, uuid.Nil, KindRejected, err
	}
	modelEvents := changes.ModelEvents()

	r.engine.logger.DebugContext(ctx, "changes recorded", "uow", r.name, "changes", changes.Len(), "model_events", len(modelEvents))

	envelopeID, err := txn.InTransaction(ctx, r.engine.transactor, r.opts.Propagation, func(ctx context.Context, tc *txn.Context) (uuid.UUID, error) {
		if err := r.precheck(ctx, tc, key); err != nil {
			return uuid.Nil, err
		}
		if err := changes.Persist(ctx, tc, r.engine.persister); err != nil {
			return uuid.Nil, err
		}
		ev := events.New(r.name, principal, modelEvents, key, encoded, tc.Now())
		if err := r.engine.writer.Add(ctx, tc, ev); err != nil {
			return uuid.Nil, err
		}
		return ev.ID, nil
	})
	if err != nil {
		return zero, uuid.Nil, KindStorage, err
	}
	return changes.Result(), envelopeID, 0, nil
}

// precheck looks for an envelope already committed under key inside tc, so
// a re-submission reports a conflict before any model write can fail on its
// own constraints. The envelope's unique key still catches concurrent
// submissions that both pass this check.
func (r *Runner[P, I, R]) precheck(ctx context.Context, tc *txn.Context, key domain.IdempotencyKey) error {
	if r.engine.finder == nil || key.IsZero() {
		return nil
	}
	rec, err := r.engine.finder.FindByIdempotencyKey(ctx, tc.Tx(), key)
	switch {
	case errors.Is(err, events.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check idempotency key %s: %w", key, err)
	}
	return &events.DuplicateError{Key: key, ExistingID: rec.ID}
}

// changes runs the block, turning scope misuse panics into errors.
func (r *Runner[P, I, R]) changes(ctx context.Context, principal P, params I) (ch *Changes[R], err error) {
	defer func() {
		if p := recover(); p != nil {
			ue, ok := p.(*UsageError)
			if !ok {
				panic(p)
			}
			ch, err = nil, ue
		}
	}()

	ch, err = r.work.Changes(ctx, principal, params)
	if err == nil && ch == nil {
		err = &UsageError{Op: "changes", Err: ErrNoChanges}
	}
	return ch, err
}

func (r *Runner[P, I, R]) validate(params I, encoded json.RawMessage) error {
	if r.opts.ValidateParams {
		if v, ok := any(params).(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidParams, err)
			}
		}
	}
	if r.opts.ParamsSchema != nil {
		var doc any
		if err := json.Unmarshal(encoded, &doc); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		if err := r.opts.ParamsSchema.Validate(doc); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
	}
	return nil
}

func (r *Runner[P, I, R]) cached(ctx context.Context, key domain.IdempotencyKey) (uuid.UUID, bool) {
	if key.IsZero() {
		return uuid.Nil, false
	}
	id, ok, err := r.engine.store.Lookup(ctx, key)
	if err != nil {
		r.engine.logger.WarnContext(ctx, "idempotency cache lookup failed", "uow", r.name, "error", err)
		return uuid.Nil, false
	}
	return id, ok
}

// joined reports whether execution runs inside the caller's transaction.
func (r *Runner[P, I, R]) joined(ctx context.Context) bool {
	_, ok := txn.FromContext(ctx)
	return ok && r.opts.Propagation == txn.JoinExisting
}

func (r *Runner[P, I, R]) remember(ctx context.Context, key domain.IdempotencyKey, id uuid.UUID) {
	if key.IsZero() {
		return
	}
	if err := r.engine.store.Remember(ctx, key, id); err != nil {
		r.engine.logger.WarnContext(ctx, "idempotency cache update failed", "uow", r.name, "error", err)
	}
}

func (r *Runner[P, I, R]) failure(ctx context.Context, err error, fallback Kind, attempts int, key domain.IdempotencyKey) *ExecutionError {
	ee := r.fail(classify(err, fallback), attempts, err)
	if ee.Kind == KindConflict {
		var dup *events.DuplicateError
		if errors.As(err, &dup) && dup.ExistingID != uuid.Nil {
			ee.ExistingID = dup.ExistingID
			// Inside a caller's transaction the envelope may not be committed yet.
			if !r.joined(ctx) {
				r.remember(ctx, key, dup.ExistingID)
			}
		} else {
			ee.ExistingID = r.existing(ctx, key)
		}
	}
	r.engine.logger.WarnContext(ctx, "unit of work failed",
		"uow", r.name,
		"kind", ee.Kind.String(),
		"attempts", attempts,
		"error", err,
	)
	return ee
}

// existing finds the envelope a duplicate collided with, outside the
// rolled-back transaction.
func (r *Runner[P, I, R]) existing(ctx context.Context, key domain.IdempotencyKey) uuid.UUID {
	if r.engine.finder == nil || key.IsZero() {
		return uuid.Nil
	}
	id, err := txn.InTransaction(ctx, r.engine.transactor, txn.RequireNew, func(ctx context.Context, tc *txn.Context) (uuid.UUID, error) {
		rec, err := r.engine.finder.FindByIdempotencyKey(ctx, tc.Tx(), key)
		if err != nil {
			return uuid.Nil, err
		}
		return rec.ID, nil
	})
	if err != nil {
		r.engine.logger.WarnContext(ctx, "lookup of prior execution failed", "uow", r.name, "error", err)
		return uuid.Nil
	}
	r.remember(ctx, key, id)
	return id
}

func (r *Runner[P, I, R]) fail(kind Kind, attempts int, err error) *ExecutionError {
	return &ExecutionError{UnitOfWork: r.name, Kind: kind, Attempts: attempts, Err: err}
}

// encodeParams renders params as canonical JSON so equal params always
// produce the same envelope text.
func encodeParams(params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeParams, err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeParams, err)
	}
	return canonical, nil
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
