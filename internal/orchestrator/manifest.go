package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/aethera-eia/aethera/internal/model"
)

// buildManifest composes the run's single commit-point document . status lets checkCancel
// reuse this for a truncated REVOKED manifest.
func (o *Orchestrator) buildManifest(st *runState, status model.RunStatus) model.Manifest {
	finishedAt := time.Now().UTC()

	var aoiGeoJSON interface{}
	if st.aoiNorm != nil {
		_ = json.Unmarshal(st.aoiNorm.WGS84, &aoiGeoJSON)
	}

	m := model.Manifest{
		RunID:         st.runID,
		ProjectID:     st.req.ProjectID,
		Status:        status,
		StartedAt:     st.startedAt,
		FinishedAt:    finishedAt,
		AOI:           aoiGeoJSON,
		Config:        st.req.Config,
		Country:       st.country,
		Artifacts:     st.artifacts,
		SkippedStages: st.skipped,
	}

	m.Scores.Biodiversity = st.mlResult.Biodiversity.Score
	m.Scores.RESM = st.mlResult.RESM.Score
	m.Scores.AHSM = st.mlResult.AHSM.Score
	m.Scores.CIM = st.mlResult.CIM.Score

	m.Emissions.BaselineTCO2e = st.emissions.BaselineTCO2e
	m.Emissions.ProjectTCO2ePerYear = st.emissions.ProjectTCO2ePerYear
	m.Emissions.NetTCO2e = st.emissions.NetTCO2e

	if st.legalResult != nil {
		m.Legal.OverallCompliant = st.legalResult.OverallCompliant
		m.Legal.Critical = len(st.legalResult.CriticalViolations)
		m.Legal.Warnings = len(st.legalResult.Warnings)
	} else {
		m.Legal.OverallCompliant = true
	}

	for _, pred := range []model.Prediction{st.mlResult.Biodiversity, st.mlResult.RESM, st.mlResult.AHSM, st.mlResult.CIM} {
		if pred.ModelRun.Name == "" {
			continue
		}
		m.ModelRuns = append(m.ModelRuns, pred.ModelRun)
	}

	if o.AC.Config.SoftBudget > 0 && finishedAt.Sub(st.startedAt) > o.AC.Config.SoftBudget {
		m.SoftBudgetWarn = true
	}

	return m
}
