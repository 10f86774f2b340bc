package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Dialect covers the statement-level differences between backends.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// UUIDArray converts ids into a value bindable to the model_events column.
	UUIDArray(ids []uuid.UUID) any
	// ScanUUIDArray returns a scanner that fills dst from the model_events column.
	ScanUUIDArray(dst *[]uuid.UUID) sql.Scanner
	// Schema returns the bootstrap DDL for the outbox tables.
	Schema() []string
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor maps a driver to its dialect.
func DialectFor(d Driver) (Dialect, error) {
	switch d {
	case DriverPostgres, DriverPgx:
		return Postgres, nil
	case DriverSQLite:
		return SQLite, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, d)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) UUIDArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}

func (postgresDialect) ScanUUIDArray(dst *[]uuid.UUID) sql.Scanner {
	return &pgUUIDArray{dst: dst}
}

func (postgresDialect) Schema() []string { return postgresSchema }

type pgUUIDArray struct {
	dst *[]uuid.UUID
}

func (a *pgUUIDArray) Scan(src any) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("scan uuid array: %w", err)
	}
	return parseUUIDs(raw, a.dst)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) UUIDArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	// json.Marshal of []string cannot fail.
	raw, _ := json.Marshal(out)
	return string(raw)
}

func (sqliteDialect) ScanUUIDArray(dst *[]uuid.UUID) sql.Scanner {
	return &jsonUUIDArray{dst: dst}
}

func (sqliteDialect) Schema() []string { return sqliteSchema }

type jsonUUIDArray struct {
	dst *[]uuid.UUID
}

func (a *jsonUUIDArray) Scan(src any) error {
	var raw []string
	switch v := src.(type) {
	case nil:
		*a.dst = nil
		return nil
	case string:
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return fmt.Errorf("scan uuid array: %w", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &raw); err != nil {
			return fmt.Errorf("scan uuid array: %w", err)
		}
	default:
		return fmt.Errorf("scan uuid array: unsupported type %T", src)
	}
	return parseUUIDs(raw, a.dst)
}

func parseUUIDs(raw []string, dst *[]uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("scan uuid array: %w", err)
		}
		ids = append(ids, id)
	}
	*dst = ids
	return nil
}
