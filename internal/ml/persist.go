package ml

import (
	"encoding/json"
	"os"

	"github.com/aethera-eia/aethera/internal/errs"
)

// LoadLearners reads a JSON-encoded list of Learner from path, the
// pretrained-weights file format "pretrained" loading
// path expects (models_dir/<ensemble_name>.json). A missing file is not
// an error here: the caller falls back to synthetic learners the same
// way NewBiodiversityEnsemble and its siblings do for a nil members
// slice.
func LoadLearners(path string) ([]Learner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.StorageError, "ml_load_learners", err)
	}
	var learners []Learner
	if err := json.Unmarshal(raw, &learners); err != nil {
		return nil, errs.Wrap(errs.ModelSchemaMismatch, "ml_load_learners", err)
	}
	return learners, nil
}
