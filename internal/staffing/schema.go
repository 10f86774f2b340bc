package staffing

// Schema is the bootstrap DDL for the staffing tables. It is valid for both
// Postgres and SQLite.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		headcount  INTEGER NOT NULL,
		ration     TEXT NOT NULL,
		version    INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id            TEXT PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		department_id TEXT NOT NULL REFERENCES departments (id),
		email         TEXT NOT NULL CONSTRAINT employees_email_key UNIQUE,
		ration        TEXT NOT NULL,
		version       INTEGER NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
}
