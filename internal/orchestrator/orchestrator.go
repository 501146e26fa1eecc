// Package orchestrator implements AETHERA's Run Orchestrator: the one
// entry point that drives a single run end to end -- normalizing the
// AOI, resolving country, checking dataset availability, executing the
// geospatial stages in their declared order, evaluating the four ML
// ensembles, running the legal evaluator, and composing the manifest
// that is the run's single commit point.
//
// The shape borrows InMAP's own run.go: one function, named steps,
// typed errors bubbling up to a single caller, generalized here to a
// ten-step, partially-concurrent, cooperatively-cancellable procedure.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aethera-eia/aethera/internal/aoi"
	"github.com/aethera-eia/aethera/internal/config"
	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/geo"
	"github.com/aethera-eia/aethera/internal/hash"
	"github.com/aethera-eia/aethera/internal/legal"
	"github.com/aethera-eia/aethera/internal/ml"
	"github.com/aethera-eia/aethera/internal/model"
	"github.com/sirupsen/logrus"
)

// ProgressEvent is the coarse, per-stage progress record every step
// publishes as a run advances.
type ProgressEvent struct {
	Stage       string  `json:"stage"`
	ProgressPct float64 `json:"progress_pct"`
	Message     string  `json:"message"`
}

// ProgressFunc receives progress events as the run advances. It may be
// nil, in which case progress is only logged.
type ProgressFunc func(ProgressEvent)

// RunRequest is the orchestrator's invocation contract: a
// project id, an AOI payload, a project config, and a caller-chosen
// task id the Task Tracker externalizes progress under.
type RunRequest struct {
	ProjectID     string
	AOIInput      []byte
	AOISourcePath string
	Config        model.ProjectConfig
	TaskID        string
	Progress      ProgressFunc
}

// Orchestrator bundles the shared AnalysisContext with the run-scoped
// collaborators (AOI loader, ML ensembles, emission factors, legal rule
// set directory) every run needs.
type Orchestrator struct {
	AC              *config.AnalysisContext
	AOILoader       *aoi.Loader
	Models          ml.Registry
	EmissionFactors geo.EmissionFactorCatalog
	RuleSetsDir     string
	Log             *logrus.Entry

	seq uint64 // monotonic run_id disambiguator, process-local
}

// New builds an Orchestrator. log may be nil, in which case the standard
// logger is used.
func New(ac *config.AnalysisContext, aoiLoader *aoi.Loader, models ml.Registry, factors geo.EmissionFactorCatalog, ruleSetsDir string, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{AC: ac, AOILoader: aoiLoader, Models: models, EmissionFactors: factors, RuleSetsDir: ruleSetsDir, Log: log}
}

// allocateRunID mints a run_id that is UTC-timestamped and monotonic
// within this process.
func (o *Orchestrator) allocateRunID() string {
	n := atomic.AddUint64(&o.seq, 1)
	return fmt.Sprintf("run_%s_%04d", time.Now().UTC().Format("20060102_150405"), n%10000)
}

// runState carries the accumulating, mutable state of one Run call
// between the step functions below -- the same role a local struct
// literal plays in InMAP's run.go, just long-lived across more
// steps.
type runState struct {
	runID     string
	taskID    string
	req       RunRequest
	startedAt time.Time
	log       *logrus.Entry
	publish   func(stage string, pct float64, msg string)

	aoiNorm *model.AOI
	country string

	artifacts     []model.Artifact
	skipped       []model.SkipRecord
	landCover     geo.LandCoverSummary
	overlay       geo.BiodiversityOverlay
	receptors     geo.ReceptorDistancesResult
	emissions     geo.EmissionsSummary
	kpis          geo.EnvironmentalKPIs
	metrics       map[string]float64
	mlResult      ml.Result
	legalResult   *model.LegalEvaluationResult
}

// Run executes the ten-step run procedure against a freshly
// allocated run_id. A cooperatively cancelled run returns (run_id, nil)
// with status REVOKED already persisted; any other failure returns
// (run_id, err) with status FAILED and error.json already persisted.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (string, error) {
	runID := o.allocateRunID()
	taskID := req.TaskID
	if taskID == "" {
		taskID = runID
	}
	log := o.Log.WithField("run_id", runID).WithField("task_id", taskID)
	progressFn := req.Progress
	if progressFn == nil {
		progressFn = func(ProgressEvent) {}
	}
	st := &runState{runID: runID, taskID: taskID, req: req, startedAt: time.Now().UTC(), log: log}
	st.publish = func(stage string, pct float64, msg string) {
		progressFn(ProgressEvent{Stage: stage, ProgressPct: pct, Message: msg})
		log.WithField("stage", stage).Info(msg)
	}

	run := model.Run{
		ID:        runID,
		ProjectID: req.ProjectID,
		Config:    req.Config,
		Status:    model.StatusProcessing,
		OutputDir: runID,
		StartedAt: st.startedAt,
	}
	if err := o.AC.Registry.CreateRun(ctx, run); err != nil {
		return runID, err
	}
	if err := o.AC.Tracker.Set(ctx, taskID, model.StatusProcessing); err != nil {
		return runID, err
	}
	st.publish("init", 0, "run allocated")

	revoked, err := o.execute(ctx, st)
	if err != nil {
		o.failRun(ctx, st, err)
		return runID, err
	}
	if revoked {
		return runID, nil
	}
	return runID, nil
}

// execute runs steps 2-9 against st, returning revoked=true if
// cooperative cancellation was honored at a stage boundary.
func (o *Orchestrator) execute(ctx context.Context, st *runState) (revoked bool, err error) {
	// Step 2: normalize AOI. Reject-fast on InvalidInput.
	st.aoiNorm, err = o.AOILoader.Load(st.req.AOIInput, st.req.AOISourcePath)
	if err != nil {
		return false, wrapFatal(errs.InvalidInput, "aoi_normalize", err)
	}
	st.publish("aoi_normalize", 10, "AOI normalized")

	if revoked, rerr := o.checkCancel(ctx, st, "aoi_normalize"); revoked || rerr != nil {
		return revoked, rerr
	}

	// Step 3: resolve country. Never fatal -- a failed lookup just
	// leaves the run's country null.
	st.country = o.resolveCountry(ctx, st)
	st.publish("resolve_country", 15, fmt.Sprintf("country=%q", st.country))

	// Step 4: dataset availability report.
	avail, err := o.AC.Catalog.AvailabilityReport(requirementsFor(st.req.Config), st.country)
	if err != nil {
		return false, wrapFatal(errs.DatasetMissing, "dataset_availability", err)
	}
	for name, a := range avail {
		if a.Required && !a.Present {
			return false, errs.New(errs.DatasetMissing, "dataset_availability",
				fmt.Sprintf("required dataset %q not found", name))
		}
	}
	if err := o.saveJSON(ctx, st, st.runID+"/dataset_availability.json", avail, true); err != nil {
		return false, wrapFatal(errs.StorageError, "dataset_availability", err)
	}
	st.publish("dataset_availability", 20, "dataset availability report written")

	if revoked, rerr := o.checkCancel(ctx, st, "dataset_availability"); revoked || rerr != nil {
		return revoked, rerr
	}

	// Step 5: geospatial stages, in the declared order. A cancellation
	// boundary right after land cover lets an operator cancel before any
	// other geospatial artifact is written, per the run directory
	// contract's post-land-cover cancellation case.
	if revoked, err := o.runGeospatialStages(ctx, st); revoked || err != nil {
		if err != nil {
			return false, wrapFatal(errs.StageFailedRequired, "geospatial_stages", err)
		}
		return true, nil
	}
	st.publish("geospatial_stages", 55, "geospatial stages complete")

	if revoked, rerr := o.checkCancel(ctx, st, "geospatial_stages"); revoked || rerr != nil {
		return revoked, rerr
	}

	// Step 6: ML ensembles -- Biodiversity/RESM/AHSM concurrently, then
	// CIM (6c) consuming their scores.
	st.metrics = geo.Metrics(st.landCover, st.overlay, st.receptors, st.emissions, st.kpis, st.aoiNorm.AreaM2/10000)
	mlResult, err := o.evaluateModels(ctx, st)
	if err != nil {
		return false, wrapFatal(errs.ModelSchemaMismatch, "ml_ensembles", err)
	}
	st.mlResult = mlResult
	st.metrics["biodiversity_score"] = mlResult.Biodiversity.Score
	st.metrics["resm_score"] = mlResult.RESM.Score
	st.metrics["ahsm_score"] = mlResult.AHSM.Score
	st.metrics["cim_score"] = mlResult.CIM.Score
	if err := o.persistPredictions(ctx, st); err != nil {
		return false, wrapFatal(errs.StorageError, "ml_ensembles", err)
	}
	st.publish("ml_ensembles", 75, "model predictions complete")

	if revoked, rerr := o.checkCancel(ctx, st, "ml_ensembles"); revoked || rerr != nil {
		return revoked, rerr
	}

	// Step 7: legal evaluation, only if a rule set exists for the
	// resolved country. Parse/load failures are non-fatal .
	st.legalResult = o.evaluateLegal(ctx, st)
	st.publish("legal_evaluation", 85, "legal evaluation complete")

	if revoked, rerr := o.checkCancel(ctx, st, "legal_evaluation"); revoked || rerr != nil {
		return revoked, rerr
	}

	// Step 8: compose and atomically write the manifest.
	manifest := o.buildManifest(st, model.StatusCompleted)
	if err := o.saveJSON(ctx, st, st.runID+"/manifest.json", manifest, false); err != nil {
		return false, wrapFatal(errs.StorageError, "manifest", err)
	}
	st.publish("manifest", 95, "manifest written")

	// Step 9: append to the registry, mark COMPLETED.
	if err := o.AC.Registry.UpdateRunStatus(ctx, st.runID, model.StatusCompleted); err != nil {
		return false, wrapFatal(errs.StorageError, "registry_commit", err)
	}
	if err := o.AC.Tracker.Set(ctx, st.taskID, model.StatusCompleted); err != nil {
		return false, wrapFatal(errs.StorageError, "registry_commit", err)
	}
	st.publish("completed", 100, "run completed")
	return false, nil
}

// evaluateModels realizes one declared point of intra-run
// concurrency: Biodiversity, RESM, and AHSM run concurrently via
// errgroup, then CIM is evaluated last against their scores.
func (o *Orchestrator) evaluateModels(ctx context.Context, st *runState) (ml.Result, error) {
	var bio, resm, ahsm model.Prediction
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bio, err = o.Models.Biodiversity.Predict(o.Models.Biodiversity.Schema.BuildVector(st.metrics))
		return err
	})
	g.Go(func() error {
		var err error
		resm, err = o.Models.RESM.Predict(o.Models.RESM.Schema.BuildVector(st.metrics))
		return err
	})
	g.Go(func() error {
		var err error
		ahsm, err = o.Models.AHSM.Predict(o.Models.AHSM.Schema.BuildVector(st.metrics))
		return err
	})
	if err := g.Wait(); err != nil {
		return ml.Result{}, err
	}

	cim, err := ml.EvaluateCIM(o.Models, st.metrics, bio, resm, ahsm)
	if err != nil {
		return ml.Result{}, err
	}
	return ml.Result{Biodiversity: bio, RESM: resm, AHSM: ahsm, CIM: cim}, nil
}

// evaluateLegal loads the resolved country's rule set (if any) and
// evaluates it. A missing or unparseable rule set is not an error: the
// run proceeds with a nil legal result.
func (o *Orchestrator) evaluateLegal(ctx context.Context, st *runState) *model.LegalEvaluationResult {
	if st.country == "" || o.RuleSetsDir == "" {
		return nil
	}
	raw, err := loadRuleSetFile(o.RuleSetsDir, st.country)
	if err != nil {
		st.log.WithError(err).Warn("no legal rule set available for country")
		return nil
	}
	rs, err := legal.LoadRuleSet(raw)
	if err != nil {
		st.log.WithError(err).Warn("legal rule set failed to parse; proceeding without legal evaluation")
		return nil
	}
	result, err := legal.Evaluate(rs, st.metrics)
	if err != nil {
		st.log.WithError(err).Warn("legal evaluation failed; proceeding without legal evaluation")
		return nil
	}
	if err := o.saveJSON(ctx, st, st.runID+"/processed/legal_evaluation.json", result, true); err != nil {
		st.log.WithError(err).Warn("failed to persist legal_evaluation.json")
	}
	return &result
}

// checkCancel polls the tracker for cooperative cancellation and the
// hard wall-clock budget at a stage boundary . A cancelled
// run writes a truncated REVOKED manifest and reports revoked=true so
// Run returns without error; an exceeded hard budget is a fatal Timeout.
func (o *Orchestrator) checkCancel(ctx context.Context, st *runState, stage string) (bool, error) {
	if o.AC.Config.HardBudget != 0 && time.Since(st.startedAt) > o.AC.Config.HardBudget {
		return false, errs.New(errs.Timeout, stage, "run exceeded its hard wall-clock budget")
	}

	cancelled, err := o.AC.Tracker.IsCancelled(ctx, st.taskID)
	if err != nil {
		return false, nil // tracker lookup failure is not itself fatal to the run
	}
	if !cancelled {
		return false, nil
	}
	manifest := o.buildManifest(st, model.StatusRevoked)
	_ = o.saveJSON(ctx, st, st.runID+"/manifest.json", manifest, false)
	_ = o.AC.Registry.UpdateRunStatus(ctx, st.runID, model.StatusRevoked)
	st.publish(stage, 100, "run cancelled")
	return true, nil
}

// failRun persists the structured error record and marks the run
// FAILED.
func (o *Orchestrator) failRun(ctx context.Context, st *runState, err error) {
	rec := model.ErrorRecord{
		Kind:    string(errs.KindOf(err)),
		Message: err.Error(),
		Stage:   stageOf(err),
	}
	_ = o.saveJSON(ctx, st, st.runID+"/error.json", rec, false)
	_ = o.AC.Registry.UpdateRunStatus(ctx, st.runID, model.StatusFailed)
	_ = o.AC.Tracker.Set(ctx, st.taskID, model.StatusFailed)
	st.publish(rec.Stage, 100, "run failed: "+rec.Message)
}

func wrapFatal(kind errs.Kind, stage string, err error) error {
	if e, ok := err.(*errs.Error); ok {
		if e.Stage == "" {
			e.Stage = stage
		}
		return e
	}
	return errs.Wrap(kind, stage, err)
}

func stageOf(err error) string {
	if e, ok := err.(*errs.Error); ok {
		return e.Stage
	}
	return ""
}

// persistPredictions writes each ensemble's prediction as its own
// manifest-tracked artifact, per the run directory layout of 
func (o *Orchestrator) persistPredictions(ctx context.Context, st *runState) error {
	writes := []struct {
		path string
		pred model.Prediction
	}{
		{st.runID + "/processed/biodiversity/prediction.json", st.mlResult.Biodiversity},
		{st.runID + "/processed/resm_prediction.json", st.mlResult.RESM},
		{st.runID + "/processed/ahsm_prediction.json", st.mlResult.AHSM},
		{st.runID + "/processed/cim_prediction.json", st.mlResult.CIM},
	}
	for _, w := range writes {
		if err := o.saveJSON(ctx, st, w.path, w.pred, true); err != nil {
			return err
		}
	}
	return nil
}

// saveJSON marshals v and writes it through the storage backend,
// recording it as a manifest artifact when recordArtifact is set (the
// manifest itself, error.json, and intermediate REVOKED manifests pass
// false since they are not artifacts of themselves).
func (o *Orchestrator) saveJSON(ctx context.Context, st *runState, path string, v interface{}, recordArtifact bool) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := o.AC.Storage.Save(ctx, path, raw); err != nil {
		return err
	}
	if recordArtifact {
		st.artifacts = append(st.artifacts, model.Artifact{Path: path, SHA256: hash.SHA256Hex(raw)})
	}
	return nil
}
