//go:build integration

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/pkg/database"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("minds"),
		postgrescontainer.WithUsername("minds"),
		postgrescontainer.WithPassword("minds"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		if pool == nil {
			if pool, err = pgxpool.New(ctx, connStr); err != nil {
				pool = nil
				return false
			}
		}
		return pool.Ping(ctx) == nil
	}, 30*time.Second, time.Second)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

func TestRepository_TrendsAndBreakdown(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	var user uuid.UUID
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES ('p@example.com', 'x', 'participant') RETURNING id`).Scan(&user))

	activity := func(date, program string) uuid.UUID {
		var id uuid.UUID
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO activities (title, date, start_time, end_time, max_capacity, program_type)
			 VALUES ('A', $1::date, '09:00', '10:00', 10, $2) RETURNING id`, date, program).Scan(&id))
		return id
	}
	register := func(activityID uuid.UUID, status string) {
		_, err := pool.Exec(ctx, `INSERT INTO registrations (user_id, activity_id, status) VALUES ($1, $2, $3)`,
			user, activityID, status)
		require.NoError(t, err)
	}

	// Today is Tuesday 2026-01-20; the last week runs 01-13 to 01-19.
	today := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	register(activity("2026-01-19", "Art"), "confirmed")
	register(activity("2026-01-13", "Art"), "confirmed")
	register(activity("2026-01-12", "Music"), "confirmed")
	register(activity("2026-01-12", ""), "cancelled")
	register(activity("2026-01-20", ""), "confirmed")      // today, not yet counted
	register(activity("2025-12-01", "Music"), "confirmed") // outside the window

	trend, err := repo.WeeklyTrends(ctx, today, 3)
	require.NoError(t, err)
	assert.Equal(t, []WeekCount{
		{WeekStart: "2025-12-30", WeekEnd: "2026-01-05", Registrations: 0},
		{WeekStart: "2026-01-06", WeekEnd: "2026-01-12", Registrations: 1},
		{WeekStart: "2026-01-13", WeekEnd: "2026-01-19", Registrations: 2},
	}, trend)

	programs, err := repo.ProgramBreakdown(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Art": 2, "Music": 2, Uncategorized: 2}, programs)
}
