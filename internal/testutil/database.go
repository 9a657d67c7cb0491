package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/db"
)

const postgresImage = "postgres:16-alpine"

// SetupTestDB starts a throwaway PostgreSQL container, applies the embedded
// migrations and returns a connection to it. The container is terminated
// when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase("clinic_test"),
		postgres.WithUsername("clinic"),
		postgres.WithPassword("clinic"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	database, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "Failed to open database")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.PingContext(ctx), "Failed to ping test database")

	_, err = db.NewMigrator(database, zap.NewNop()).Apply(ctx)
	require.NoError(t, err, "Failed to apply migrations")

	return database
}

// CleanupTestDB removes all patients and resets the id sequence
func CleanupTestDB(t *testing.T, database *sql.DB) {
	t.Helper()

	if _, err := database.Exec("TRUNCATE TABLE pacientes RESTART IDENTITY"); err != nil {
		t.Logf("Warning: Failed to clean up pacientes: %v", err)
	}
}
