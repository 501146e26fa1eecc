package ml

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

func baseMetrics() map[string]float64 {
	return map[string]float64{
		"protected_overlap_pct":          60,
		"protected_site_count":           5,
		"natural_ratio":                  40,
		"forest_ratio":                   30,
		"shannon_diversity_index":        1.5,
		"habitat_fragmentation_index":    0.5,
		"impervious_ratio":               10,
		"resource_efficiency_index":      2.0,
		"net_emissions_balance":          15,
		"baseline_emissions_intensity":   3.0,
		"land_use_intensity":             0.4,
		"carbon_sequestration_potential": 8,
		"agricultural_land_ratio":        20,
		"impervious_surface_ratio":       10,
		"distance_to_settlement_km":      5,
		"distance_to_water_km":           3,
		"air_quality_index":              70,
		"protected_area_overlap_pct":     60,
	}
}

func TestBiodiversityEnsembleScoreInRange(t *testing.T) {
	reg := Registry{
		Biodiversity: NewBiodiversityEnsemble(nil, ""),
		RESM:         NewRESMEnsemble(nil, ""),
		AHSM:         NewAHSMEnsemble(nil, ""),
		CIM:          NewCIMEnsemble(nil, ""),
	}
	result, err := Evaluate(reg, baseMetrics())
	require.NoError(t, err)

	for _, p := range []model.Prediction{result.Biodiversity, result.RESM, result.AHSM, result.CIM} {
		require.GreaterOrEqual(t, p.Score, 0.0)
		require.LessOrEqual(t, p.Score, 100.0)
		require.NotEmpty(t, p.Category)
		require.LessOrEqual(t, len(p.Drivers), 5)
		require.Equal(t, LoadPathSynthetic, p.ModelRun.LoadPath)
	}
}

func TestCIMConsumesOtherScores(t *testing.T) {
	reg := Registry{
		Biodiversity: NewBiodiversityEnsemble(nil, ""),
		RESM:         NewRESMEnsemble(nil, ""),
		AHSM:         NewAHSMEnsemble(nil, ""),
		CIM:          NewCIMEnsemble(nil, ""),
	}
	metrics := baseMetrics()
	bio, resm, ahsm, err := EvaluateIndependent(reg, metrics)
	require.NoError(t, err)

	cimLow, err := EvaluateCIM(reg, metrics, model.Prediction{Score: 0}, model.Prediction{Score: 0}, model.Prediction{Score: 0})
	require.NoError(t, err)
	cimHigh, err := EvaluateCIM(reg, metrics, model.Prediction{Score: 100}, model.Prediction{Score: 100}, model.Prediction{Score: 100})
	require.NoError(t, err)

	require.Greater(t, cimHigh.Score, cimLow.Score)

	_, _ = bio, resm
	_ = ahsm
}

func TestPredictRejectsSchemaMismatch(t *testing.T) {
	ens := NewBiodiversityEnsemble(nil, "")
	vec := model.FeatureVector{SchemaVersion: "wrong-version", Values: map[string]float64{}}
	_, err := ens.Predict(vec)
	require.Error(t, err)
	require.Equal(t, errs.ModelSchemaMismatch, errs.KindOf(err))
}

func TestCategorizeBoundaries(t *testing.T) {
	require.Equal(t, "low", categorize(0, biodiversityBins))
	require.Equal(t, "moderate", categorize(25, biodiversityBins))
	require.Equal(t, "high", categorize(50, biodiversityBins))
	require.Equal(t, "very_high", categorize(99, biodiversityBins))
}

func TestBuildVectorRecordsDefaultedFields(t *testing.T) {
	vec := BiodiversitySchema.BuildVector(map[string]float64{"protected_overlap_pct": 10})
	require.Contains(t, vec.Defaulted, "natural_ratio")
	require.Equal(t, 10.0, vec.Values["protected_overlap_pct"])
}

func TestFitProducesUsableLearner(t *testing.T) {
	fieldNames := []string{"x"}
	rows := [][]float64{{0}, {10}, {20}, {30}}
	targets := []float64{0, 25, 50, 75}
	l := Fit("linear", fieldNames, rows, targets)

	vec := model.FeatureVector{Values: map[string]float64{"x": 20}}
	got := l.predict(vec)
	require.InDelta(t, 50, got, 5)
}
