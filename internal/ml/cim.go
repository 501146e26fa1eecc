package ml

const cimSchemaVersion = "cim-v1"

// CIMSchema is the Composite Impact Model's feature vector schema. CIM
// is evaluated last in the fixed topological order (Biodiversity, RESM,
// AHSM, CIM) and consumes the other three ensembles' scores as inputs,
//.5.
var CIMSchema = Schema{
	Version: cimSchemaVersion,
	Fields: fields(
		"biodiversity_score", 0.0,
		"resm_score", 0.0,
		"ahsm_score", 0.0,
		"net_emissions_balance", 0.0,
		"protected_area_overlap_pct", 0.0,
	),
}

var cimBins = []Bin{
	{Name: "low", Threshold: 0},
	{Name: "moderate", Threshold: 25},
	{Name: "high", Threshold: 50},
	{Name: "very_high", Threshold: 75},
}

// NewCIMEnsemble builds the Composite Impact Model ensemble.
func NewCIMEnsemble(members []Learner, loadPath string) Ensemble {
	if len(members) == 0 {
		members = syntheticCIMLearners()
		loadPath = LoadPathSynthetic
	}
	return Ensemble{
		Name:     "composite_impact_model",
		Version:  "1.0.0",
		Schema:   CIMSchema,
		Bins:     cimBins,
		Members:  members,
		LoadPath: loadPath,
	}
}

func syntheticCIMLearners() []Learner {
	means := map[string]float64{
		"biodiversity_score":         30,
		"resm_score":                 40,
		"ahsm_score":                 35,
		"net_emissions_balance":      10,
		"protected_area_overlap_pct": 10,
	}
	compositeLearner := Learner{
		Name: "weighted_composite",
		Weights: map[string]float64{
			"biodiversity_score": 0.4,
			"resm_score":         0.3,
			"ahsm_score":         0.3,
		},
		Bias:  0,
		Means: means,
	}
	riskLearner := Learner{
		Name: "risk_amplifier",
		Weights: map[string]float64{
			"biodiversity_score":         0.5,
			"net_emissions_balance":      0.2,
			"protected_area_overlap_pct": 0.6,
		},
		Bias:  15,
		Means: means,
	}
	return []Learner{compositeLearner, riskLearner}
}
