// Package databasetest opens throwaway databases for package tests.
package databasetest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/uow/pkg/database"
)

// OpenSQLite opens a file-backed SQLite database under t.TempDir with the
// outbox schema and any extra DDL applied. The pool is capped at one
// connection so statements after a rollback observe its effects.
func OpenSQLite(t testing.TB, extra ...string) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uow.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open(string(database.DriverSQLite), dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.EnsureSchema(context.Background(), db, database.SQLite, extra...))
	return db
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
