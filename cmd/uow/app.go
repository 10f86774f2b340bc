package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Mindburn-Labs/uow/internal/staffing"
	"github.com/Mindburn-Labs/uow/pkg/config"
	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/idempotency"
	"github.com/Mindburn-Labs/uow/pkg/observability"
	"github.com/Mindburn-Labs/uow/pkg/persistence"
	"github.com/Mindburn-Labs/uow/pkg/tracing"
	"github.com/Mindburn-Labs/uow/pkg/txn"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

// app is the wired process: one database, one engine and the staffing
// service bound to it.
type app struct {
	db      *sql.DB
	dialect database.Dialect
	obs     *observability.Provider
	events  *events.SQLRepository
	staff   *staffing.Service
	closers []func(context.Context) error
}

func bootstrap(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close(ctx)
		}
	}()

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTelEnabled
	obsCfg.OTLPEndpoint = cfg.OTelEndpoint
	obsCfg.SampleRate = cfg.OTelSampleRate
	a.obs, err = observability.New(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a.closers = append(a.closers, a.obs.Shutdown)

	a.db, a.dialect, err = database.Open(ctx, database.Config{
		Driver: database.Driver(cfg.DatabaseDriver),
		DSN:    cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}
	db := a.db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	units, err := config.LoadUnitOptions(cfg.UnitsFile)
	if err != nil {
		return nil, err
	}

	manager, err := txn.NewManager(a.db)
	if err != nil {
		return nil, err
	}

	reg := persistence.NewRegistry()
	repos := staffing.RegisterRepositories(reg, a.dialect)
	if err := reg.Seal(staffing.Models()...); err != nil {
		return nil, err
	}

	a.events = events.NewSQLRepository(a.dialect, events.WithTracer(tracing.New(nil)))

	opts := []uow.EngineOption{uow.WithObserver(a.obs)}
	if cfg.RedisAddr != "" {
		store := idempotency.NewRedisStoreFromAddr(cfg.RedisAddr, "", 0, idempotency.WithTTL(cfg.IdempotencyTTL))
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		opts = append(opts, uow.WithIdempotencyStore(store))
	}

	engine, err := uow.NewEngine(manager, reg, a.events, opts...)
	if err != nil {
		return nil, err
	}

	a.staff, err = staffing.NewService(a.db, repos, engine, units)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases everything bootstrap acquired, newest first.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			slog.Default().WarnContext(ctx, "shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
