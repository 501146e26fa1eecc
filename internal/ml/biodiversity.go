package ml

// biodiversitySchemaVersion is the Biodiversity ensemble's feature vector
// schema version .
const biodiversitySchemaVersion = "biodiversity-v1"

// BiodiversitySchema declares the ordered, defaulted feature vector the
// Biodiversity ensemble reads, sourced from internal/geo's metrics
// namespace.
var BiodiversitySchema = Schema{
	Version: biodiversitySchemaVersion,
	Fields: fields(
		"protected_overlap_pct", 0.0,
		"protected_site_count", 0.0,
		"natural_ratio", 0.0,
		"forest_ratio", 0.0,
		"shannon_diversity_index", 0.0,
		"habitat_fragmentation_index", 0.0,
		"impervious_ratio", 0.0,
	),
}

// biodiversityBins are the fixed category thresholds 
// assigns the Biodiversity ensemble: low/moderate/high/very_high at
// {25,50,75}.
var biodiversityBins = []Bin{
	{Name: "low", Threshold: 0},
	{Name: "moderate", Threshold: 25},
	{Name: "high", Threshold: 50},
	{Name: "very_high", Threshold: 75},
}

// NewBiodiversityEnsemble builds the Biodiversity sensitivity ensemble.
// When no discoverable training dataset is supplied, it falls back to a
// synthetic pair of learners built from domain-reasoned weights,
// following the pretrained-or-fit-or-synthetic loading policy every
// ensemble shares.
func NewBiodiversityEnsemble(members []Learner, loadPath string) Ensemble {
	if len(members) == 0 {
		members = syntheticBiodiversityLearners()
		loadPath = LoadPathSynthetic
	}
	return Ensemble{
		Name:    "biodiversity_sensitivity",
		Version: "1.0.0",
		Schema:  BiodiversitySchema,
		Bins:    biodiversityBins,
		Members: members,
		LoadPath: loadPath,
	}
}

func syntheticBiodiversityLearners() []Learner {
	means := map[string]float64{
		"protected_overlap_pct":       10,
		"protected_site_count":        2,
		"natural_ratio":               30,
		"forest_ratio":                20,
		"shannon_diversity_index":     1.2,
		"habitat_fragmentation_index": 0.4,
		"impervious_ratio":            15,
	}
	overlapLearner := Learner{
		Name: "overlap_heuristic",
		Weights: map[string]float64{
			"protected_overlap_pct": 1.8,
			"protected_site_count":  4.0,
			"natural_ratio":         0.5,
			"forest_ratio":          0.4,
		},
		Bias:  0,
		Means: means,
	}
	diversityLearner := Learner{
		Name: "diversity_heuristic",
		Weights: map[string]float64{
			"shannon_diversity_index":     25,
			"habitat_fragmentation_index": 30,
			"impervious_ratio":            -0.6,
		},
		Bias:  20,
		Means: means,
	}
	return []Learner{overlapLearner, diversityLearner}
}
