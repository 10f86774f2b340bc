package staffing_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Mindburn-Labs/uow/internal/staffing"
	"github.com/Mindburn-Labs/uow/pkg/config"
	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/database/databasetest"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/persistence"
	"github.com/Mindburn-Labs/uow/pkg/tracing"
	"github.com/Mindburn-Labs/uow/pkg/txn"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

var nik = domain.NewPrincipal(42, "Nik")

type fixture struct {
	db      *sql.DB
	dialect database.Dialect
	tracer  *tracing.Tracer
	events  *events.SQLRepository
	manager *txn.Manager
	engine  *uow.Engine
	svc     *staffing.Service
}

func newFixture(t *testing.T, units *config.UnitsFile) *fixture {
	t.Helper()
	return newFixtureOn(t, databasetest.OpenSQLite(t, staffing.Schema...), database.SQLite, units)
}

func newFixtureOn(t *testing.T, db *sql.DB, dialect database.Dialect, units *config.UnitsFile) *fixture {
	t.Helper()

	tracer := tracing.New(sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample())))
	repo := events.NewSQLRepository(dialect, events.WithTracer(tracer))

	manager, err := txn.NewManager(db)
	require.NoError(t, err)

	reg := persistence.NewRegistry()
	repos := staffing.RegisterRepositories(reg, dialect)
	require.NoError(t, reg.Seal(staffing.Models()...))

	engine, err := uow.NewEngine(manager, reg, repo)
	require.NoError(t, err)

	svc, err := staffing.NewService(db, repos, engine, units)
	require.NoError(t, err)

	return &fixture{db: db, dialect: dialect, tracer: tracer, events: repo, manager: manager, engine: engine, svc: svc}
}

func (f *fixture) department(t *testing.T, headcount int) *staffing.Department {
	t.Helper()
	d, err := f.svc.CreateDepartment.Execute(context.Background(), nik, staffing.CreateDepartmentParams{
		Name:      "Kitchen",
		Headcount: headcount,
		Ration:    staffing.Borscht,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	return databasetest.Count(t, f.db, table)
}
