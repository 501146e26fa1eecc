package aetherautil

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/aethera-eia/aethera/internal/aoi"
	aetheraconfig "github.com/aethera-eia/aethera/internal/config"
	"github.com/aethera-eia/aethera/internal/orchestrator"
)

// buildOrchestrator loads configuration from cfg's viper instance and
// assembles the shared AnalysisContext, ML registry, AOI loader, and
// emission factor catalog into one Orchestrator, the composition every
// subcommand that executes a run shares.
func buildOrchestrator(ctx context.Context, cfg *Cfg, log *logrus.Entry) (*orchestrator.Orchestrator, error) {
	loaded, err := aetheraconfig.Load(cfg.Viper, cfg.GetString("config"))
	if err != nil {
		return nil, err
	}

	ac, err := aetheraconfig.Build(ctx, loaded, orchestrator.BuildFeatureSet, log)
	if err != nil {
		return nil, err
	}

	factors, err := loadEmissionFactors(loaded.EmissionFactorsPath)
	if err != nil {
		return nil, err
	}
	models, err := loadModels(loaded.ModelsDir)
	if err != nil {
		return nil, err
	}

	aoiLoader := aoi.NewLoader(loaded.WorkingCRS)
	return orchestrator.New(ac, aoiLoader, models, factors, loaded.LegalRuleSetsPath, log), nil
}
