// Package txn runs blocking bodies inside database transactions and hands
// them a transactional context with a single commit timestamp.
package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Propagation selects how Run attaches to a transaction.
type Propagation int

const (
	// RequireNew always begins a fresh transaction on the pool. A nested
	// RequireNew commits independently of the caller's transaction.
	RequireNew Propagation = iota
	// JoinExisting reuses the live transaction carried by the context, or
	// begins a new one when there is none.
	JoinExisting
)

func (p Propagation) String() string {
	switch p {
	case RequireNew:
		return "require_new"
	case JoinExisting:
		return "join_existing"
	default:
		return fmt.Sprintf("propagation(%d)", int(p))
	}
}

// ParsePropagation maps the String form back to a Propagation.
func ParsePropagation(s string) (Propagation, error) {
	switch s {
	case "", "require_new":
		return RequireNew, nil
	case "join_existing":
		return JoinExisting, nil
	default:
		return RequireNew, fmt.Errorf("unknown propagation %q", s)
	}
}

var ErrNilDB = errors.New("txn: database handle is required")

// Transactor runs a body in a transaction. *Manager implements it.
type Transactor interface {
	Run(ctx context.Context, mode Propagation, fn func(ctx context.Context, tc *Context) error) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to stamp transactions.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger used for rollback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTxOptions sets isolation level and read-only mode for new transactions.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(m *Manager) {
		m.txOptions = opts
	}
}

// Manager opens transactions on a pooled *sql.DB.
type Manager struct {
	db        *sql.DB
	clock     Clock
	logger    *slog.Logger
	txOptions *sql.TxOptions
}

func NewManager(db *sql.DB, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	m := &Manager{
		db:     db,
		clock:  SystemClock,
		logger: slog.Default().With("component", "txn"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Run executes fn under the requested propagation. On normal return the
// transaction is committed before Run returns; any error from fn rolls it
// back and is returned unchanged. A joined call never commits: the owner of
// the transaction does.
func (m *Manager) Run(ctx context.Context, mode Propagation, fn func(ctx context.Context, tc *Context) error) error {
	if mode == JoinExisting {
		if tc, ok := FromContext(ctx); ok {
			return fn(ctx, tc)
		}
	}
	return m.runNew(ctx, fn)
}

func (m *Manager) runNew(ctx context.Context, fn func(ctx context.Context, tc *Context) error) (err error) {
	// BeginTx binds the transaction to ctx: cancellation before commit
	// makes database/sql roll it back.
	tx, err := m.db.BeginTx(ctx, m.txOptions)
	if err != nil {
		return fmt.Errorf("txn: begin: %w", err)
	}

	tc := &Context{now: m.clock.Now().UTC().Truncate(time.Microsecond), tx: tx}
	ctx = WithContext(ctx, tc)

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, tx, tc)
			panic(p)
		}
	}()

	if err = fn(ctx, tc); err != nil {
		m.rollback(ctx, tx, tc)
		return err
	}
	if cerr := ctx.Err(); cerr != nil {
		m.rollback(ctx, tx, tc)
		return cerr
	}

	tc.finish()
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("txn: commit: %w", err)
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, tx *sql.Tx, tc *Context) {
	tc.finish()
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		m.logger.WarnContext(ctx, "rollback failed", "error", err)
	}
}

// InTransaction runs fn through t and returns its result. The result is
// only returned when the transaction was committed (or joined successfully).
func InTransaction[R any](ctx context.Context, t Transactor, mode Propagation, fn func(ctx context.Context, tc *Context) (R, error)) (R, error) {
	var out R
	err := t.Run(ctx, mode, func(ctx context.Context, tc *Context) error {
		r, err := fn(ctx, tc)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}
