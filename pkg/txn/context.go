package txn

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"
)

// Executor is the statement surface of an open transaction. *sql.Tx
// satisfies it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Context is the TransactionalContext handed to every collaborator that
// writes under one transaction. The timestamp is read once when the
// transaction opens; every row written under it reports the same instant.
type Context struct {
	now  time.Time
	tx   Executor
	done atomic.Bool
}

// NewContext builds a Context around an already open executor. The Manager
// is the normal way to obtain one; this exists for adapters and tests.
func NewContext(now time.Time, tx Executor) *Context {
	return &Context{now: now, tx: tx}
}

// Now returns the commit timestamp shared by the whole transaction.
func (c *Context) Now() time.Time { return c.now }

// Tx returns the executor bound to the transaction.
func (c *Context) Tx() Executor { return c.tx }

// Finished reports whether the transaction was committed or rolled back.
func (c *Context) Finished() bool { return c.done.Load() }

func (c *Context) finish() { c.done.Store(true) }

type contextKey struct{}

// WithContext returns ctx carrying tc so JoinExisting calls can find it.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the live transactional context carried by ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || tc == nil || tc.Finished() {
		return nil, false
	}
	return tc, true
}
