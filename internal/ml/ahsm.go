package ml

const ahsmSchemaVersion = "ahsm-v1"

// AHSMSchema is the Anthropogenic Habitat Stress Model's feature vector
// schema.
var AHSMSchema = Schema{
	Version: ahsmSchemaVersion,
	Fields: fields(
		"impervious_surface_ratio", 0.0,
		"distance_to_settlement_km", 50.0,
		"distance_to_water_km", 50.0,
		"land_use_intensity", 0.0,
		"air_quality_index", 100.0,
		"protected_area_overlap_pct", 0.0,
	),
}

// ahsmBins follow the same moderate/high structure as Biodiversity
// since no distinct threshold set is named for AHSM in ;
// the fixed 25/50/75 split is reused for consistency across ensembles
// sharing the 0-100 score range.
var ahsmBins = []Bin{
	{Name: "low", Threshold: 0},
	{Name: "moderate", Threshold: 25},
	{Name: "high", Threshold: 50},
	{Name: "very_high", Threshold: 75},
}

// NewAHSMEnsemble builds the Anthropogenic Habitat Stress Model ensemble.
func NewAHSMEnsemble(members []Learner, loadPath string) Ensemble {
	if len(members) == 0 {
		members = syntheticAHSMLearners()
		loadPath = LoadPathSynthetic
	}
	return Ensemble{
		Name:     "anthropogenic_habitat_stress",
		Version:  "1.0.0",
		Schema:   AHSMSchema,
		Bins:     ahsmBins,
		Members:  members,
		LoadPath: loadPath,
	}
}

func syntheticAHSMLearners() []Learner {
	means := map[string]float64{
		"impervious_surface_ratio":  15,
		"distance_to_settlement_km": 10,
		"distance_to_water_km":      8,
		"land_use_intensity":        0.3,
		"air_quality_index":         80,
		"protected_area_overlap_pct": 10,
	}
	proximityLearner := Learner{
		Name: "proximity_heuristic",
		Weights: map[string]float64{
			"distance_to_settlement_km": -2.0,
			"distance_to_water_km":      -1.0,
			"impervious_surface_ratio":  1.2,
		},
		Bias:  40,
		Means: means,
	}
	pressureLearner := Learner{
		Name: "pressure_heuristic",
		Weights: map[string]float64{
			"land_use_intensity":         50,
			"air_quality_index":          -0.5,
			"protected_area_overlap_pct": 0.8,
		},
		Bias:  35,
		Means: means,
	}
	return []Learner{proximityLearner, pressureLearner}
}
