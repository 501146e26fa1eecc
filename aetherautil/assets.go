// Package aetherautil is AETHERA's command-line and server composition
// root, grounded on InMAP's inmaputil package: a Cfg wrapper
// around *viper.Viper and a set of cobra.Command fields built by
// InitializeConfig, with RunE closures that gather configuration and
// delegate to the exported Run/Serve functions below.
package aetherautil

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/geo"
	"github.com/aethera-eia/aethera/internal/ml"
)

// loadEmissionFactors reads the YAML emission factor catalog at path
// (the emission_factors_path configuration key). A missing path yields
// an empty catalog rather than an error: the emissions stage computes a
// baseline of zero for any unrecognized class, so an absent catalog
// degrades gracefully instead of blocking a run.
func loadEmissionFactors(path string) (geo.EmissionFactorCatalog, error) {
	if path == "" {
		return geo.EmissionFactorCatalog{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return geo.EmissionFactorCatalog{}, nil
		}
		return nil, errs.Wrap(errs.StorageError, "emission_factors_load", err)
	}
	var factors []geo.EmissionFactor
	if err := yaml.Unmarshal(raw, &factors); err != nil {
		return nil, errs.Wrap(errs.ModelSchemaMismatch, "emission_factors_load", err)
	}
	out := make(geo.EmissionFactorCatalog, len(factors))
	for _, f := range factors {
		out[f.Class] = f.TCO2eHaYr
	}
	return out, nil
}

// loadModels assembles the four ML ensembles, loading pretrained weights
// from "<modelsDir>/<name>.json" when modelsDir is set and falling back
// to each ensemble's synthetic learners otherwise (NewXEnsemble already
// implements that fallback for a nil/empty members slice).
func loadModels(modelsDir string) (ml.Registry, error) {
	load := func(name string) ([]ml.Learner, error) {
		if modelsDir == "" {
			return nil, nil
		}
		return ml.LoadLearners(modelsDir + "/" + name + ".json")
	}

	bio, err := load("biodiversity")
	if err != nil {
		return ml.Registry{}, err
	}
	resm, err := load("resm")
	if err != nil {
		return ml.Registry{}, err
	}
	ahsm, err := load("ahsm")
	if err != nil {
		return ml.Registry{}, err
	}
	cim, err := load("cim")
	if err != nil {
		return ml.Registry{}, err
	}

	loadPath := func(members []ml.Learner) string {
		if len(members) == 0 {
			return ml.LoadPathSynthetic
		}
		return ml.LoadPathPretrained
	}

	return ml.Registry{
		Biodiversity: ml.NewBiodiversityEnsemble(bio, loadPath(bio)),
		RESM:         ml.NewRESMEnsemble(resm, loadPath(resm)),
		AHSM:         ml.NewAHSMEnsemble(ahsm, loadPath(ahsm)),
		CIM:          ml.NewCIMEnsemble(cim, loadPath(cim)),
	}, nil
}
