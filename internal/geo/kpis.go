package geo

import "math"

// KPI is one derived environmental indicator with its unit and scale
// annotation. Each KPI has a deterministic formula over prior
// artifacts, written with its unit and scale annotations.
type KPI struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Scale string  `json:"scale"` // "0-1", "0-100", "unbounded", ...
}

// EnvironmentalKPIs is processed/environmental_kpis.json.
type EnvironmentalKPIs struct {
	KPIs []KPI `json:"kpis"`
}

// KPIInputs is the flat set of prior-artifact values the KPI formulas
// read from.
type KPIInputs struct {
	LandCover  LandCoverSummary
	Overlay    BiodiversityOverlay
	Receptors  ReceptorDistancesResult
	Emissions  EmissionsSummary
	AOIAreaHa  float64
}

// KPIs computes the 20+ derived indicators 
// deterministic formula over the other stage artifacts.
func KPIs(in KPIInputs) EnvironmentalKPIs {
	shannon := shannonDiversity(in.LandCover.Classes)
	fragIndex := fragmentationIndex(in.LandCover.Classes, in.AOIAreaHa)
	ecosystemValue := ecosystemServiceValue(in.LandCover)
	soilErosion := soilErosionRisk(in.LandCover)
	airQuality := airQualityIndex(in.Emissions)
	resourceEff := resourceEfficiency(in.Emissions, in.AOIAreaHa)

	kpis := []KPI{
		{Name: "shannon_diversity_index", Value: round6(shannon), Unit: "nat", Scale: "unbounded"},
		{Name: "habitat_fragmentation_index", Value: round6(fragIndex), Unit: "index", Scale: "0-1"},
		{Name: "ecosystem_service_value", Value: round6(ecosystemValue), Unit: "usd_per_ha_year", Scale: "unbounded"},
		{Name: "soil_erosion_risk_index", Value: round6(soilErosion), Unit: "index", Scale: "0-100"},
		{Name: "air_quality_index", Value: round6(airQuality), Unit: "index", Scale: "0-100"},
		{Name: "resource_efficiency_index", Value: round6(resourceEff), Unit: "tco2e_per_ha", Scale: "unbounded"},
		{Name: "agricultural_land_ratio", Value: in.LandCover.AgriculturalRatio, Unit: "pct", Scale: "0-100"},
		{Name: "natural_land_ratio", Value: in.LandCover.NaturalRatio, Unit: "pct", Scale: "0-100"},
		{Name: "impervious_surface_ratio", Value: in.LandCover.ImperviousRatio, Unit: "pct", Scale: "0-100"},
		{Name: "forest_cover_ratio", Value: in.LandCover.ForestRatio, Unit: "pct", Scale: "0-100"},
		{Name: "protected_area_overlap_pct", Value: in.Overlay.ProtectedOverlapPct, Unit: "pct", Scale: "0-100"},
		{Name: "protected_site_count", Value: float64(in.Overlay.SiteCount), Unit: "count", Scale: "unbounded"},
		{Name: "baseline_emissions_intensity", Value: round6(safeDiv(in.Emissions.BaselineTCO2e, in.AOIAreaHa)), Unit: "tco2e_per_ha", Scale: "unbounded"},
		{Name: "net_emissions_balance", Value: in.Emissions.NetTCO2e, Unit: "tco2e", Scale: "unbounded"},
		{Name: "biodiversity_pressure_index", Value: round6(biodiversityPressure(in.Overlay, in.LandCover)), Unit: "index", Scale: "0-100"},
		{Name: "land_use_intensity", Value: round6(landUseIntensity(in.LandCover)), Unit: "index", Scale: "0-1"},
		{Name: "carbon_sequestration_potential", Value: round6(carbonSequestration(in.LandCover)), Unit: "tco2e_per_year", Scale: "unbounded"},
		{Name: "habitat_connectivity_index", Value: round6(1 - fragIndex), Unit: "index", Scale: "0-1"},
		{Name: "landscape_naturalness_index", Value: round6((in.LandCover.NaturalRatio + in.LandCover.ForestRatio) / 200), Unit: "index", Scale: "0-1"},
		{Name: "nearest_settlement_distance_km", Value: optionalKM(in.Receptors, ReceptorSettlement), Unit: "km", Scale: "unbounded"},
		{Name: "nearest_water_body_distance_km", Value: optionalKM(in.Receptors, ReceptorWaterBody), Unit: "km", Scale: "unbounded"},
		{Name: "nearest_protected_area_distance_km", Value: optionalKM(in.Receptors, ReceptorProtectedArea), Unit: "km", Scale: "unbounded"},
	}
	return EnvironmentalKPIs{KPIs: kpis}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// shannonDiversity computes the Shannon diversity index H = -sum(p_i *
// ln(p_i)) over land-cover class proportions.
func shannonDiversity(classes []ClassArea) float64 {
	var h float64
	for _, c := range classes {
		p := c.Pct / 100
		if p <= 0 {
			continue
		}
		h -= p * math.Log(p)
	}
	return h
}

// fragmentationIndex approximates habitat fragmentation as 1 minus the
// largest class's share of total area -- a monolithic cover scores low
// fragmentation, an evenly split one scores high.
func fragmentationIndex(classes []ClassArea, aoiAreaHa float64) float64 {
	if len(classes) == 0 {
		return 0
	}
	var maxPct float64
	for _, c := range classes {
		if c.Pct > maxPct {
			maxPct = c.Pct
		}
	}
	return 1 - maxPct/100
}

// ecosystemServiceValue applies representative USD/ha/year values per
// land-cover group (forest > natural > agricultural > impervious),
// following the benefit-transfer convention used in EIA practice.
func ecosystemServiceValue(lc LandCoverSummary) float64 {
	const (
		forestValue       = 3000.0
		naturalValue      = 2000.0
		agriculturalValue = 500.0
		imperviousValue   = 0.0
	)
	return lc.ForestRatio/100*forestValue +
		lc.NaturalRatio/100*naturalValue +
		lc.AgriculturalRatio/100*agriculturalValue +
		lc.ImperviousRatio/100*imperviousValue
}

// soilErosionRisk scores 0-100, higher for agricultural/impervious
// cover (bare or compacted soils) and lower for forest/natural cover.
func soilErosionRisk(lc LandCoverSummary) float64 {
	return clamp(lc.AgriculturalRatio*0.6+lc.ImperviousRatio*0.8-lc.ForestRatio*0.3-lc.NaturalRatio*0.2+20, 0, 100)
}

// airQualityIndex scores 0-100 (100 = best) as a decreasing function of
// total baseline emissions (tCO2e, not normalized by area).
func airQualityIndex(em EmissionsSummary) float64 {
	score := 100 - em.BaselineTCO2e/100
	return clamp(score, 0, 100)
}

func resourceEfficiency(em EmissionsSummary, aoiAreaHa float64) float64 {
	return safeDiv(em.NetTCO2e, aoiAreaHa)
}

func biodiversityPressure(ov BiodiversityOverlay, lc LandCoverSummary) float64 {
	return clamp(ov.ProtectedOverlapPct*0.7+lc.ImperviousRatio*0.3, 0, 100)
}

func landUseIntensity(lc LandCoverSummary) float64 {
	return clamp((lc.ImperviousRatio+lc.AgriculturalRatio)/200, 0, 1)
}

func carbonSequestration(lc LandCoverSummary) float64 {
	const forestSeqTPerHaYr = 5.0
	haTotal := lc.TotalAreaM2 / 10000
	return haTotal * lc.ForestRatio / 100 * forestSeqTPerHaYr
}

func optionalKM(r ReceptorDistancesResult, class ReceptorClass) float64 {
	for _, rd := range r.Receptors {
		if rd.Class == class && rd.DistanceKM != nil {
			return *rd.DistanceKM
		}
	}
	return r.MaxKM
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
