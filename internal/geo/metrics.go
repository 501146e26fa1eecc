package geo

// Metrics flattens the geospatial stage artifacts into the single
// namespace the ML ensembles and Legal Evaluator read feature values
// from by name .
func Metrics(lc LandCoverSummary, ov BiodiversityOverlay, rc ReceptorDistancesResult, em EmissionsSummary, kpis EnvironmentalKPIs, aoiAreaHa float64) map[string]float64 {
	m := map[string]float64{
		"aoi_area_ha":                  round6(aoiAreaHa),
		"agricultural_ratio":           lc.AgriculturalRatio,
		"natural_ratio":                lc.NaturalRatio,
		"impervious_ratio":             lc.ImperviousRatio,
		"forest_ratio":                 lc.ForestRatio,
		"protected_overlap_pct":        ov.ProtectedOverlapPct,
		"protected_site_count":         float64(ov.SiteCount),
		"baseline_tco2e":               em.BaselineTCO2e,
		"project_operation_tco2e_per_year": em.OperationalTCO2ePerYear,
		"project_tco2e_per_year":       em.ProjectTCO2ePerYear,
		"net_tco2e":                    em.NetTCO2e,
		"distance_to_protected_km":     optionalKM(rc, ReceptorProtectedArea),
		"distance_to_settlement_km":    optionalKM(rc, ReceptorSettlement),
		"distance_to_water_km":         optionalKM(rc, ReceptorWaterBody),
	}
	for _, k := range kpis.KPIs {
		m[k.Name] = k.Value
	}
	return m
}
