package ml

const resmSchemaVersion = "resm-v1"

// RESMSchema is the Resource Efficiency & Sustainability Model's feature
// vector schema.
var RESMSchema = Schema{
	Version: resmSchemaVersion,
	Fields: fields(
		"resource_efficiency_index", 0.0,
		"net_emissions_balance", 0.0,
		"baseline_emissions_intensity", 0.0,
		"land_use_intensity", 0.0,
		"carbon_sequestration_potential", 0.0,
		"agricultural_land_ratio", 0.0,
	),
}

// resmBins are the fixed category thresholds :
// very_low/low/moderate/high/very_high at {20,40,60,80}.
var resmBins = []Bin{
	{Name: "very_low", Threshold: 0},
	{Name: "low", Threshold: 20},
	{Name: "moderate", Threshold: 40},
	{Name: "high", Threshold: 60},
	{Name: "very_high", Threshold: 80},
}

// NewRESMEnsemble builds the Resource Efficiency & Sustainability Model
// ensemble.
func NewRESMEnsemble(members []Learner, loadPath string) Ensemble {
	if len(members) == 0 {
		members = syntheticRESMLearners()
		loadPath = LoadPathSynthetic
	}
	return Ensemble{
		Name:     "resource_efficiency_sustainability",
		Version:  "1.0.0",
		Schema:   RESMSchema,
		Bins:     resmBins,
		Members:  members,
		LoadPath: loadPath,
	}
}

func syntheticRESMLearners() []Learner {
	means := map[string]float64{
		"resource_efficiency_index":      1.0,
		"net_emissions_balance":          10,
		"baseline_emissions_intensity":   2.0,
		"land_use_intensity":             0.3,
		"carbon_sequestration_potential": 5,
		"agricultural_land_ratio":        25,
	}
	efficiencyLearner := Learner{
		Name: "efficiency_heuristic",
		Weights: map[string]float64{
			"resource_efficiency_index":    8.0,
			"net_emissions_balance":        0.5,
			"baseline_emissions_intensity": 4.0,
		},
		Bias:  30,
		Means: means,
	}
	landLearner := Learner{
		Name: "land_use_heuristic",
		Weights: map[string]float64{
			"land_use_intensity":             40,
			"carbon_sequestration_potential": -1.5,
			"agricultural_land_ratio":        0.3,
		},
		Bias:  25,
		Means: means,
	}
	return []Learner{efficiencyLearner, landLearner}
}
