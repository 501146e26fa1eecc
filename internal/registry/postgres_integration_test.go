//go:build integration

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aethera-eia/aethera/internal/model"
)

// startTestPostgres brings up a disposable Postgres container and returns
// a connection URL, adapted from InMAP's own internal/postgis
// container helper but against the stock postgres image instead of a
// PostGIS-plus-OSM-data fixture: the registry has no spatial columns, so
// nothing here needs anything beyond plain Postgres.
func startTestPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("aethera_registry_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		t.Skipf("skipping postgres registry integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestPostgresStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	url := startTestPostgres(ctx, t)

	store, err := Connect(ctx, url)
	require.NoError(t, err)

	p := model.Project{ID: "proj-1", Name: "Test Solar Farm", Sector: "renewable_energy", CreatedAt: time.Now()}
	require.NoError(t, store.CreateProject(ctx, p))

	got, err := store.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)

	r := model.Run{ID: "run-1", ProjectID: "proj-1", Status: model.StatusPending}
	require.NoError(t, store.CreateRun(ctx, r))
	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", model.StatusCompleted))

	run, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, run.Status)
}
