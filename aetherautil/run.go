package aetherautil

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aethera-eia/aethera/internal/model"
	"github.com/aethera-eia/aethera/internal/orchestrator"
)

// runOnce reads the run command's flags, loads the AOI input from disk,
// and executes a single orchestrator run, printing each stage's progress
// to the command's output (cobra's default is stderr) as it arrives --
// the same role outChan plays for the
// teacher's long-running steady/grid commands.
func runOnce(cmd *cobra.Command, cfg *Cfg) error {
	aoiPath := cfg.GetString("aoi")
	if aoiPath == "" {
		return fmt.Errorf("aethera run: --aoi is required")
	}
	aoiRaw, err := os.ReadFile(aoiPath)
	if err != nil {
		return fmt.Errorf("aethera run: reading AOI input: %w", err)
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	ctx := context.Background()

	o, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("aethera run: %w", err)
	}

	projectConfig := model.ProjectConfig{
		Type:         cfg.GetString("project_type"),
		CapacityMW:   cfg.GetFloat64("capacity_mw"),
		Country:      cfg.GetString("country"),
		HorizonYears: cfg.GetInt("horizon_years"),
	}

	runID, err := o.Run(ctx, orchestrator.RunRequest{
		ProjectID:     cfg.GetString("project_id"),
		AOIInput:      aoiRaw,
		AOISourcePath: aoiPath,
		Config:        projectConfig,
		TaskID:        cfg.GetString("task_id"),
		Progress: func(ev orchestrator.ProgressEvent) {
			cmd.Printf("[%3.0f%%] %-20s %s\n", ev.ProgressPct, ev.Stage, ev.Message)
		},
	})
	if err != nil {
		return fmt.Errorf("aethera run: run %s failed: %w", runID, err)
	}

	if run, gerr := o.AC.Registry.GetRun(ctx, runID); gerr == nil {
		cmd.Printf("run_id=%s status=%s\n", runID, run.Status)
		return nil
	}
	cmd.Printf("run_id=%s\n", runID)
	return nil
}
