package geo

import "github.com/aethera-eia/aethera/internal/model"

// EmissionFactor is one land-cover class's emission factor, in
// tCO2e/hectare/year, as loaded from the YAML factor catalog
// (emission_factors_path configuration key).
type EmissionFactor struct {
	Class  string  `yaml:"class" json:"class"`
	TCO2eHaYr float64 `yaml:"tco2e_per_ha_year" json:"tco2e_per_ha_year"`
}

// EmissionFactorCatalog maps class name to factor.
type EmissionFactorCatalog map[string]float64

// EmissionsSummary is processed/emissions_summary.json.
type EmissionsSummary struct {
	BaselineTCO2e       float64 `json:"baseline_tco2e"`
	ConstructionTCO2e    float64 `json:"construction_tco2e"`
	OperationalTCO2ePerYear float64 `json:"operational_tco2e_per_year"`
	ProjectTCO2ePerYear  float64 `json:"project_tco2e_per_year"`
	AvoidedTCO2ePerYear  float64 `json:"avoided_tco2e_per_year"`
	NetTCO2e             float64 `json:"net_tco2e"`
	HorizonYears         int     `json:"horizon_years"`
}

// Emissions computes baseline land-cover emissions and project-induced
// emissions.4: "baseline (land-cover x per-class
// emission factor) and project-induced (construction one-off +
// operational per-year x horizon)...net balance = operational - avoided".
func Emissions(lc LandCoverSummary, factors EmissionFactorCatalog, cfg model.ProjectConfig) EmissionsSummary {
	var baseline float64
	for _, c := range lc.Classes {
		factor := factors[c.Class]
		ha := c.AreaM2 / 10000
		baseline += ha * factor
	}

	horizon := cfg.HorizonYears
	if horizon <= 0 {
		horizon = 25
	}

	construction := floatOption(cfg, "construction_tco2e", 0)
	operationalPerYear := floatOption(cfg, "operational_tco2e_per_year", 0)
	avoidedPerYear := floatOption(cfg, "avoided_tco2e_per_year", 0)

	projectTotal := construction + operationalPerYear*float64(horizon)
	net := operationalPerYear - avoidedPerYear

	return EmissionsSummary{
		BaselineTCO2e:           round6(baseline),
		ConstructionTCO2e:       round6(construction),
		OperationalTCO2ePerYear: round6(operationalPerYear),
		ProjectTCO2ePerYear:     round6(projectTotal),
		AvoidedTCO2ePerYear:     round6(avoidedPerYear),
		NetTCO2e:                round6(net),
		HorizonYears:            horizon,
	}
}

func floatOption(cfg model.ProjectConfig, key string, def float64) float64 {
	if cfg.Options == nil {
		return def
	}
	v, ok := cfg.Options[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
