// Package database opens the SQL backends the unit-of-work core runs on and
// hides the few places where Postgres and SQLite differ.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
)

// Driver names a database/sql driver supported by this module.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverPgx      Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

var (
	ErrUnknownDriver = errors.New("database: unknown driver")
	ErrEmptyDSN      = errors.New("database: dsn is required")
)

// Config holds pool settings for one database.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectionConfig describes a Postgres endpoint field by field.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the keyword/value form understood by both lib/pq and pgx.
func (c ConnectionConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode,
	)
}

var sqlOpen = sql.Open

// Open opens and pings the database and returns the matching dialect.
func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DSN == "" {
		return nil, nil, ErrEmptyDSN
	}

	db, err := sqlOpen(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, dialect, nil
}
