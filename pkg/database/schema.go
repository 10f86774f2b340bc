package database

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS uow_events (
		id              UUID PRIMARY KEY,
		name            TEXT NOT NULL,
		principal_id    TEXT NOT NULL,
		principal_name  TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		params          JSONB NOT NULL,
		occurred_at     TIMESTAMPTZ NOT NULL,
		model_events    UUID[] NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_events (
		id              UUID PRIMARY KEY,
		uow_id          UUID NOT NULL REFERENCES uow_events (id),
		model_id        TEXT NOT NULL,
		name            TEXT NOT NULL,
		model_name      TEXT NOT NULL,
		occurred_at     TIMESTAMPTZ NOT NULL,
		payload         JSONB NOT NULL,
		tracing_context JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS model_events_uow_id_idx ON model_events (uow_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS uow_events (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		principal_id    TEXT NOT NULL,
		principal_name  TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		params          JSON NOT NULL,
		occurred_at     TIMESTAMP NOT NULL,
		model_events    JSON NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_events (
		id              TEXT PRIMARY KEY,
		uow_id          TEXT NOT NULL REFERENCES uow_events (id),
		model_id        TEXT NOT NULL,
		name            TEXT NOT NULL,
		model_name      TEXT NOT NULL,
		occurred_at     TIMESTAMP NOT NULL,
		payload         JSON NOT NULL,
		tracing_context JSON
	)`,
	`CREATE INDEX IF NOT EXISTS model_events_uow_id_idx ON model_events (uow_id)`,
}

// EnsureSchema creates the outbox tables when they are missing. It is a
// bootstrap for development and tests, not a migration system.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect, extra ...string) error {
	stmts := append(append([]string{}, dialect.Schema()...), extra...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema (%s): %w", dialect.Name(), err)
		}
	}
	return nil
}
