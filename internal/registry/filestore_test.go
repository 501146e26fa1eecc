package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aethera-eia/aethera/internal/model"
)

func TestFileStoreCreateAndGetProject(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	p := model.Project{ID: "proj-1", Name: "Test Solar Farm", Sector: "renewable_energy", CreatedAt: time.Now()}
	require.NoError(t, store.CreateProject(ctx, p))

	got, err := store.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
}

func TestFileStoreRunLifecycle(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	r := model.Run{ID: "run-1", ProjectID: "proj-1", Status: model.StatusPending}
	require.NoError(t, store.CreateRun(ctx, r))

	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", model.StatusCompleted))
	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
}

func TestFileStoreListRunsFiltersByProject(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.CreateRun(ctx, model.Run{ID: "run-1", ProjectID: "proj-a"}))
	require.NoError(t, store.CreateRun(ctx, model.Run{ID: "run-2", ProjectID: "proj-a"}))
	require.NoError(t, store.CreateRun(ctx, model.Run{ID: "run-3", ProjectID: "proj-b"}))

	runs, err := store.ListRuns(ctx, "proj-a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestFileStoreGetMissingReturnsError(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.GetRun(context.Background(), "missing")
	require.Error(t, err)
}
