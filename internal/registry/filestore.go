package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// FileStore is a Registry backed by one flat JSON file per project and
// per run under root, the single-node deployment backend.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore builds a FileStore rooted at root, creating the
// projects/ and runs/ subdirectories if needed.
func NewFileStore(root string) (*FileStore, error) {
	for _, sub := range []string{"projects", "runs"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, errs.Wrap(errs.StorageError, "registry_filestore_init", err)
		}
	}
	return &FileStore{root: root}, nil
}

func (f *FileStore) projectPath(id string) string { return filepath.Join(f.root, "projects", id+".json") }
func (f *FileStore) runPath(id string) string      { return filepath.Join(f.root, "runs", id+".json") }

func (f *FileStore) CreateProject(_ context.Context, p model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSONAtomic(f.projectPath(p.ID), p)
}

func (f *FileStore) GetProject(_ context.Context, id string) (model.Project, error) {
	var p model.Project
	if err := readJSON(f.projectPath(id), &p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

func (f *FileStore) CreateRun(_ context.Context, r model.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSONAtomic(f.runPath(r.ID), r)
}

func (f *FileStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var r model.Run
	if err := readJSON(f.runPath(runID), &r); err != nil {
		return err
	}
	r.Status = status
	return writeJSONAtomic(f.runPath(runID), r)
}

func (f *FileStore) GetRun(_ context.Context, runID string) (model.Run, error) {
	var r model.Run
	if err := readJSON(f.runPath(runID), &r); err != nil {
		return model.Run{}, err
	}
	return r, nil
}

func (f *FileStore) ListRuns(_ context.Context, projectID string) ([]model.Run, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, "runs"))
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "registry_filestore_list", err)
	}
	var runs []model.Run
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var r model.Run
		if err := readJSON(filepath.Join(f.root, "runs", e.Name()), &r); err != nil {
			continue
		}
		if r.ProjectID == projectID {
			runs = append(runs, r)
		}
	}
	return runs, nil
}

// writeJSONAtomic writes v to path via a temp-file-in-same-dir-plus-
// rename, the same atomic-write idiom internal/storage.LocalBackend
// uses for artifact writes.
func writeJSONAtomic(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_filestore_write", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errs.Wrap(errs.StorageError, "registry_filestore_write", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.Wrap(errs.StorageError, "registry_filestore_write", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.StorageError, "registry_filestore_write", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Wrap(errs.StorageError, "registry_filestore_write", err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.New(errs.InvalidInput, "registry_filestore_read", "no such record: "+filepath.Base(path))
		}
		return errs.Wrap(errs.StorageError, "registry_filestore_read", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap(errs.StorageError, "registry_filestore_read", err)
	}
	return nil
}
