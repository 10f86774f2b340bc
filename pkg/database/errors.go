package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
	pgTooManyConnections   = "53300"
	pgConnectionClass      = "08"
)

// IsUniqueViolation reports whether err is a unique or primary key
// constraint violation from any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// ConstraintName returns the violated constraint when the driver reports it.
// SQLite names no constraint; its violated columns are returned instead, as
// "table.column".
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		const marker = "constraint failed: "
		msg := liteErr.Error()
		i := strings.LastIndex(msg, marker)
		if i < 0 {
			return ""
		}
		cols, _, _ := strings.Cut(msg[i+len(marker):], " (")
		return strings.TrimSpace(cols)
	}
	return ""
}

// IsTransient reports whether err is a failure a caller may retry as a
// whole: lost connections, deadlocks, serialization failures, lock
// contention and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPgCode(string(pqErr.Code))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCode(pgErr.Code)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		primary := liteErr.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}

func transientPgCode(code string) bool {
	switch code {
	case pgSerializationFailure, pgDeadlockDetected, pgQueryCanceled, pgTooManyConnections:
		return true
	}
	return len(code) == 5 && code[:2] == pgConnectionClass
}
