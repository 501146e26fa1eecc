package ml

import "github.com/aethera-eia/aethera/internal/model"

// Registry bundles the four ensembles 
// topological evaluation order: Biodiversity, RESM, and AHSM have no
// inter-dependencies and are the run orchestrator's one declared point
// of intra-run concurrency; CIM is evaluated last, consuming their
// scores as additional feature inputs.
type Registry struct {
	Biodiversity Ensemble
	RESM         Ensemble
	AHSM         Ensemble
	CIM          Ensemble
}

// Result is the complete set of predictions from one evaluation pass,
// keyed by ensemble name for manifest assembly.
type Result struct {
	Biodiversity model.Prediction
	RESM         model.Prediction
	AHSM         model.Prediction
	CIM          model.Prediction
}

// EvaluateIndependent runs the three independent ensembles (Biodiversity,
// RESM, AHSM) against a shared metrics namespace. The orchestrator calls
// this inside an errgroup to realize the design's one declared point of
// intra-run concurrency; this function itself stays sequential and
// side-effect free so it can be called from any concurrency strategy.
func EvaluateIndependent(reg Registry, metrics map[string]float64) (bio, resm, ahsm model.Prediction, err error) {
	bioVec := reg.Biodiversity.Schema.BuildVector(metrics)
	bio, err = reg.Biodiversity.Predict(bioVec)
	if err != nil {
		return
	}
	resmVec := reg.RESM.Schema.BuildVector(metrics)
	resm, err = reg.RESM.Predict(resmVec)
	if err != nil {
		return
	}
	ahsmVec := reg.AHSM.Schema.BuildVector(metrics)
	ahsm, err = reg.AHSM.Predict(ahsmVec)
	return
}

// EvaluateCIM runs the Composite Impact Model last, folding the other
// three ensembles' scores into the metrics namespace it builds its
// feature vector from.
func EvaluateCIM(reg Registry, metrics map[string]float64, bio, resm, ahsm model.Prediction) (model.Prediction, error) {
	augmented := make(map[string]float64, len(metrics)+3)
	for k, v := range metrics {
		augmented[k] = v
	}
	augmented["biodiversity_score"] = bio.Score
	augmented["resm_score"] = resm.Score
	augmented["ahsm_score"] = ahsm.Score

	vec := reg.CIM.Schema.BuildVector(augmented)
	return reg.CIM.Predict(vec)
}

// Evaluate runs all four ensembles in the fixed topological order and
// returns the full Result set.
func Evaluate(reg Registry, metrics map[string]float64) (Result, error) {
	bio, resm, ahsm, err := EvaluateIndependent(reg, metrics)
	if err != nil {
		return Result{}, err
	}
	cim, err := EvaluateCIM(reg, metrics, bio, resm, ahsm)
	if err != nil {
		return Result{}, err
	}
	return Result{Biodiversity: bio, RESM: resm, AHSM: ahsm, CIM: cim}, nil
}
