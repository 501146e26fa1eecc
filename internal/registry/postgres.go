package registry

import (
	"context"
	"encoding/json"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// PostgresStore is a Registry backed by a shared Postgres database,
// grounded directly on InMAP's internal/postgis.SetupTestDB
// connection pattern: pgx.Connect wrapped in a cenkalti/backoff retry
// loop to ride out a database that is still starting up.
type PostgresStore struct {
	conn *pgx.Conn
}

// Connect dials url, retrying with exponential backoff, and ensures the
// registry's tables exist.
func Connect(ctx context.Context, url string) (*PostgresStore, error) {
	var conn *pgx.Conn
	err := backoff.Retry(func() error {
		c, err := pgx.Connect(ctx, url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "registry_postgres_connect", err)
	}

	store := &PostgresStore{conn: conn}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aethera_projects (
			id TEXT PRIMARY KEY,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS aethera_runs (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS aethera_runs_project_id_idx ON aethera_runs(project_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return errs.Wrap(errs.StorageError, "registry_postgres_migrate", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p model.Project) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_postgres_create_project", err)
	}
	_, err = s.conn.Exec(ctx,
		`INSERT INTO aethera_projects (id, body) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body`,
		p.ID, body)
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_postgres_create_project", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	var raw []byte
	err := s.conn.QueryRow(ctx, `SELECT body FROM aethera_projects WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return model.Project{}, errs.New(errs.InvalidInput, "registry_postgres_get_project", "no such project: "+id)
	}
	if err != nil {
		return model.Project{}, errs.Wrap(errs.StorageError, "registry_postgres_get_project", err)
	}
	var p model.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Project{}, errs.Wrap(errs.StorageError, "registry_postgres_get_project", err)
	}
	return p, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, r model.Run) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_postgres_create_run", err)
	}
	_, err = s.conn.Exec(ctx,
		`INSERT INTO aethera_runs (id, project_id, status, body) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, body = EXCLUDED.body`,
		r.ID, r.ProjectID, string(r.Status), body)
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_postgres_create_run", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	r, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	r.Status = status
	return s.CreateRun(ctx, r)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (model.Run, error) {
	var raw []byte
	err := s.conn.QueryRow(ctx, `SELECT body FROM aethera_runs WHERE id = $1`, runID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return model.Run{}, errs.New(errs.InvalidInput, "registry_postgres_get_run", "no such run: "+runID)
	}
	if err != nil {
		return model.Run{}, errs.Wrap(errs.StorageError, "registry_postgres_get_run", err)
	}
	var r model.Run
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Run{}, errs.Wrap(errs.StorageError, "registry_postgres_get_run", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, projectID string) ([]model.Run, error) {
	rows, err := s.conn.Query(ctx, `SELECT body FROM aethera_runs WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "registry_postgres_list_runs", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errs.Wrap(errs.StorageError, "registry_postgres_list_runs", err)
		}
		var r model.Run
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, errs.Wrap(errs.StorageError, "registry_postgres_list_runs", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
