package geo

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"

	"github.com/aethera-eia/aethera/internal/model"
)

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

func TestLandCoverRatios(t *testing.T) {
	aoi := square(0, 0, 100, 100) // 10,000 m2
	fs := FeatureSet{Features: []Feature{
		{ID: "1", Geom: square(0, 0, 50, 100), Attributes: map[string]string{"class": "forest"}},
		{ID: "2", Geom: square(50, 0, 100, 100), Attributes: map[string]string{"class": "urban"}},
	}}
	summary := LandCover(fs, aoi, "class")
	require.InDelta(t, 50.0, summary.ForestRatio, 1e-6)
	require.InDelta(t, 50.0, summary.ImperviousRatio, 1e-6)
	require.InDelta(t, 10000.0, summary.TotalAreaM2, 1e-6)
}

func TestBiodiversityOverlayDedupesBySiteID(t *testing.T) {
	aoi := square(0, 0, 100, 100)
	regional := FeatureSet{Features: []Feature{
		{ID: "site-A", Geom: square(0, 0, 50, 50)},
	}}
	global := FeatureSet{Features: []Feature{
		{ID: "site-A", Geom: square(0, 0, 50, 50)},
		{ID: "site-B", Geom: square(60, 60, 90, 90)},
	}}
	ov, err := BiodiversityOverlayStage(regional, global, aoi)
	require.NoError(t, err)
	require.Equal(t, 2, ov.SiteCount)
	require.Greater(t, ov.ProtectedOverlapPct, 0.0)
}

func TestReceptorsReportsNullBeyondCap(t *testing.T) {
	aoi := square(0, 0, 100, 100)
	classes := map[ReceptorClass]FeatureSet{
		ReceptorSettlement: {Features: []Feature{
			{ID: "town-1", Geom: geom.Point{X: 1_000_000, Y: 1_000_000}},
		}},
	}
	result := Receptors(classes, aoi, 50)
	for _, r := range result.Receptors {
		if r.Class == ReceptorSettlement {
			require.Nil(t, r.DistanceKM)
		}
		if r.Class == ReceptorProtectedArea {
			require.Nil(t, r.DistanceKM)
		}
	}
}

func TestEmissionsNetBalance(t *testing.T) {
	lc := LandCoverSummary{Classes: []ClassArea{{Class: "forest", AreaM2: 10000}}}
	factors := EmissionFactorCatalog{"forest": 1.0}
	cfg := model.ProjectConfig{
		HorizonYears: 10,
		Options: map[string]interface{}{
			"construction_tco2e":          100.0,
			"operational_tco2e_per_year":  50.0,
			"avoided_tco2e_per_year":      20.0,
		},
	}
	em := Emissions(lc, factors, cfg)
	require.InDelta(t, 1.0, em.BaselineTCO2e, 1e-6)
	require.InDelta(t, 600.0, em.ProjectTCO2ePerYear, 1e-6) // 100 + 50*10
	require.InDelta(t, 30.0, em.NetTCO2e, 1e-6)              // 50 - 20
}

func TestKPIsProducesAllIndicators(t *testing.T) {
	lc := LandCover(FeatureSet{Features: []Feature{
		{ID: "1", Geom: square(0, 0, 100, 100), Attributes: map[string]string{"class": "forest"}},
	}}, square(0, 0, 100, 100), "class")
	ov := BiodiversityOverlay{ProtectedOverlapPct: 10, SiteCount: 2}
	rc := ReceptorDistancesResult{MaxKM: 50}
	em := EmissionsSummary{BaselineTCO2e: 5, NetTCO2e: 2}
	kpis := KPIs(KPIInputs{LandCover: lc, Overlay: ov, Receptors: rc, Emissions: em, AOIAreaHa: 1})
	require.GreaterOrEqual(t, len(kpis.KPIs), 20)
}
