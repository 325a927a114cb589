package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(ctx context.Context) (*postgres.PostgresContainer, error) {
	return postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(60*time.Second),
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
			),
		),
	)
}

func TestRunLogLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}

	ctx := context.Background()

	container, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Bootstrap(connStr))

	store, err := Connect(ctx, connStr, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.RecordRunStart(ctx, "acme-wholesale")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, store.RecordRunComplete(ctx, runID, 42, 10, 3))
}

func TestRunLogRecordsFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}

	ctx := context.Background()

	container, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Bootstrap(connStr))

	store, err := Connect(ctx, connStr, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.RecordRunStart(ctx, "acme-wholesale")
	require.NoError(t, err)

	require.NoError(t, store.RecordRunFailed(ctx, runID, context.DeadlineExceeded))
}
