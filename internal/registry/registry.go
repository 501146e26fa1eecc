// Package registry implements AETHERA's append-only Project/Run
// Registry: two interchangeable backends, a flat-JSON
// filestore for single-node deployments and a Postgres-backed store
// for shared deployments, grounded on InMAP's own
// internal/postgis package (pgx.Connect plus cenkalti/backoff retry).
package registry

import (
	"context"

	"github.com/aethera-eia/aethera/internal/model"
)

// Registry is the append-only store of Projects and Runs.
type Registry interface {
	CreateProject(ctx context.Context, p model.Project) error
	GetProject(ctx context.Context, id string) (model.Project, error)
	CreateRun(ctx context.Context, r model.Run) error
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (model.Run, error)
	ListRuns(ctx context.Context, projectID string) ([]model.Run, error)
}

var (
	_ Registry = (*FileStore)(nil)
	_ Registry = (*PostgresStore)(nil)
)
