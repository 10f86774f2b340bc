//go:build integration

package staffing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Mindburn-Labs/uow/internal/staffing"
	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("uow"),
		tcpostgres.WithUsername("uow"),
		tcpostgres.WithPassword("uow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestIntegration_Postgres(t *testing.T) {
	dsn := startPostgres(t)

	for _, driver := range []database.Driver{database.DriverPostgres, database.DriverPgx} {
		t.Run(string(driver), func(t *testing.T) {
			ctx := context.Background()
			db, dialect, err := database.Open(ctx, database.Config{Driver: driver, DSN: dsn})
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			require.NoError(t, database.EnsureSchema(ctx, db, dialect, staffing.Schema...))
			_, err = db.ExecContext(ctx, "TRUNCATE model_events, uow_events, employees, departments")
			require.NoError(t, err)

			f := newFixtureOn(t, db, dialect, nil)
			dep := f.department(t, 0)

			key := domain.NewIdempotencyKey()
			params := staffing.HireEmployeeParams{
				DepartmentID: dep.ID(),
				Name:         staffing.Name{First: "Ann", Last: "Lee"},
				Email:        "ann@example.com",
				Keyed:        uow.Keyed{Key: key},
			}
			ctx, span := f.tracer.Start(ctx, "uow.HireEmployee")
			_, err = f.svc.HireEmployee.Execute(ctx, nik, params)
			span.End()
			require.NoError(t, err)

			env, err := f.events.FindByIdempotencyKey(ctx, db, key)
			require.NoError(t, err)
			require.Len(t, env.ModelEvents, 1)

			evs, err := f.events.ModelEvents(ctx, db, env.ID)
			require.NoError(t, err)
			require.Len(t, evs, 1)
			assert.Equal(t, env.ModelEvents[0], evs[0].ID)
			assert.Equal(t, span.SpanContext().TraceID().String(), evs[0].TracingContext["X-B3-TraceId"])

			_, err = f.svc.HireEmployee.Execute(context.Background(), nik, params)
			var ee *uow.ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, uow.KindConflict, ee.Kind)
			assert.Equal(t, env.ID, ee.ExistingID)
			assert.Equal(t, 1, f.count(t, "employees"))
			assert.Equal(t, 2, f.count(t, "uow_events"))
		})
	}
}
