package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aethera-eia/aethera/internal/aoi"
	"github.com/aethera-eia/aethera/internal/cache"
	"github.com/aethera-eia/aethera/internal/catalog"
	"github.com/aethera-eia/aethera/internal/config"
	"github.com/aethera-eia/aethera/internal/geo"
	"github.com/aethera-eia/aethera/internal/ml"
	"github.com/aethera-eia/aethera/internal/model"
	"github.com/aethera-eia/aethera/internal/registry"
	"github.com/aethera-eia/aethera/internal/storage"
	"github.com/aethera-eia/aethera/internal/tracker"
)

// squareAOI is a ~1km^2 WGS84 square east of Frankfurt, well inside the
// EPSG:3035 working CRS's valid extent.
const squareAOI = `{"type":"Polygon","coordinates":[[[8.68,50.10],[8.70,50.10],[8.70,50.12],[8.68,50.12],[8.68,50.10]]]}`

func syntheticRegistry() ml.Registry {
	return ml.Registry{
		Biodiversity: ml.NewBiodiversityEnsemble(nil, ""),
		RESM:         ml.NewRESMEnsemble(nil, ""),
		AHSM:         ml.NewAHSMEnsemble(nil, ""),
		CIM:          ml.NewCIMEnsemble(nil, ""),
	}
}

func newTestOrchestrator(t *testing.T, dataRoot string, tr tracker.Tracker) (*Orchestrator, *registry.FileStore, *storage.LocalBackend) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewLocal(dir + "/artifacts")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	reg, err := registry.NewFileStore(dir + "/registry")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if dataRoot == "" {
		dataRoot = t.TempDir()
	}
	cat := catalog.New(dataRoot, nil)
	ch := cache.New(cache.Options{MemoryEntries: 16}, BuildFeatureSet)

	if tr == nil {
		tr = tracker.NewMemoryTracker()
	}

	ac := &config.AnalysisContext{
		Config:   config.Config{},
		Catalog:  cat,
		Cache:    ch,
		Storage:  store,
		Registry: reg,
		Tracker:  tr,
	}

	o := New(ac, aoi.NewLoader("EPSG:3035"), syntheticRegistry(), geo.EmissionFactorCatalog{}, "", nil)
	return o, reg, store
}

func TestRunCompletesWithAllDatasetsAbsent(t *testing.T) {
	o, reg, store := newTestOrchestrator(t, "", nil)

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-1",
		AOIInput:  []byte(squareAOI),
		Config:    model.ProjectConfig{Type: "solar_pv"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if runID == "" {
		t.Fatal("Run returned empty run id")
	}

	run, err := reg.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != model.StatusCompleted {
		t.Fatalf("run status = %s, want COMPLETED", run.Status)
	}

	raw, err := store.Read(context.Background(), runID+"/manifest.json")
	if err != nil {
		t.Fatalf("reading manifest.json: %v", err)
	}
	var manifest model.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.Status != model.StatusCompleted {
		t.Fatalf("manifest status = %s, want COMPLETED", manifest.Status)
	}
	if len(manifest.ModelRuns) != 4 {
		t.Fatalf("manifest has %d model runs, want 4", len(manifest.ModelRuns))
	}
	if len(manifest.SkippedStages) == 0 {
		t.Fatal("expected skipped stages for every absent dataset, got none")
	}
	if !manifest.Legal.OverallCompliant {
		t.Fatal("manifest legal.overall_compliant should default true with no rule set configured")
	}
}

func TestRunFailsWhenRequiredDatasetMissing(t *testing.T) {
	o, reg, _ := newTestOrchestrator(t, "", nil)

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-2",
		AOIInput:  []byte(squareAOI),
		Config: model.ProjectConfig{
			Type:    "solar_pv",
			Options: map[string]interface{}{"required_datasets": []interface{}{"land_cover"}},
		},
	})
	if err == nil {
		t.Fatal("expected an error for a missing required dataset, got nil")
	}

	run, gerr := reg.GetRun(context.Background(), runID)
	if gerr != nil {
		t.Fatalf("GetRun: %v", gerr)
	}
	if run.Status != model.StatusFailed {
		t.Fatalf("run status = %s, want FAILED", run.Status)
	}
}

func TestRunRejectsInvalidAOI(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, "", nil)

	_, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-3",
		AOIInput:  []byte(`not geojson`),
		Config:    model.ProjectConfig{Type: "solar_pv"},
	})
	if err == nil {
		t.Fatal("expected an error for malformed AOI input, got nil")
	}
}

// cancelAfterTracker cancels the run as soon as its status has been read
// back at least minReads times, simulating an operator cancellation that
// lands between two stage boundaries of an in-flight run.
type cancelAfterTracker struct {
	tracker.Tracker
	minReads int
	reads    int
}

func (c *cancelAfterTracker) IsCancelled(ctx context.Context, runID string) (bool, error) {
	c.reads++
	if c.reads > c.minReads {
		return true, nil
	}
	return false, nil
}

func TestRunHonorsCooperativeCancellation(t *testing.T) {
	inner := tracker.NewMemoryTracker()
	o, reg, store := newTestOrchestrator(t, "", &cancelAfterTracker{Tracker: inner, minReads: 0})

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-4",
		AOIInput:  []byte(squareAOI),
		Config:    model.ProjectConfig{Type: "solar_pv"},
	})
	if err != nil {
		t.Fatalf("a cancelled run should not surface as an error: %v", err)
	}

	run, gerr := reg.GetRun(context.Background(), runID)
	if gerr != nil {
		t.Fatalf("GetRun: %v", gerr)
	}
	if run.Status != model.StatusRevoked {
		t.Fatalf("run status = %s, want REVOKED", run.Status)
	}

	raw, err := store.Read(context.Background(), runID+"/manifest.json")
	if err != nil {
		t.Fatalf("reading manifest.json: %v", err)
	}
	var manifest model.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.Status != model.StatusRevoked {
		t.Fatalf("manifest status = %s, want REVOKED", manifest.Status)
	}
}

func TestRunTracksStatusUnderCallerSuppliedTaskID(t *testing.T) {
	tr := tracker.NewMemoryTracker()
	o, _, _ := newTestOrchestrator(t, "", tr)

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-6",
		AOIInput:  []byte(squareAOI),
		Config:    model.ProjectConfig{Type: "solar_pv"},
		TaskID:    "caller-chosen-task-id",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	status, gerr := tr.Get(context.Background(), "caller-chosen-task-id")
	if gerr != nil {
		t.Fatalf("Get(task_id): %v", gerr)
	}
	if status != model.StatusCompleted {
		t.Fatalf("tracker status under task_id = %s, want COMPLETED", status)
	}

	if _, gerr := tr.Get(context.Background(), runID); gerr == nil {
		t.Fatal("expected no tracker entry keyed by run_id when a distinct task_id was supplied")
	}
}

func TestRunIncludesDatasetAvailabilityArtifactAfterCancel(t *testing.T) {
	inner := tracker.NewMemoryTracker()
	o, _, store := newTestOrchestrator(t, "", &cancelAfterTracker{Tracker: inner, minReads: 2})

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-7",
		AOIInput:  []byte(squareAOI),
		Config:    model.ProjectConfig{Type: "solar_pv"},
	})
	if err != nil {
		t.Fatalf("a cancelled run should not surface as an error: %v", err)
	}

	raw, err := store.Read(context.Background(), runID+"/manifest.json")
	if err != nil {
		t.Fatalf("reading manifest.json: %v", err)
	}
	var manifest model.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	var paths []string
	for _, a := range manifest.Artifacts {
		paths = append(paths, a.Path)
	}
	wantSuffixes := []string{"dataset_availability.json", "land_cover_summary.json"}
	for _, want := range wantSuffixes {
		found := false
		for _, p := range paths {
			if len(p) >= len(want) && p[len(p)-len(want):] == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("manifest.artifacts missing %q, got %v", want, paths)
		}
	}
}

func TestRunExceedingHardBudgetFailsWithTimeout(t *testing.T) {
	o, reg, _ := newTestOrchestrator(t, "", nil)
	o.AC.Config.HardBudget = -1 // already exceeded at the first checkpoint

	runID, err := o.Run(context.Background(), RunRequest{
		ProjectID: "proj-5",
		AOIInput:  []byte(squareAOI),
		Config:    model.ProjectConfig{Type: "solar_pv"},
	})
	if err == nil {
		t.Fatal("expected a hard-budget timeout error, got nil")
	}

	run, gerr := reg.GetRun(context.Background(), runID)
	if gerr != nil {
		t.Fatalf("GetRun: %v", gerr)
	}
	if run.Status != model.StatusFailed {
		t.Fatalf("run status = %s, want FAILED", run.Status)
	}
}
