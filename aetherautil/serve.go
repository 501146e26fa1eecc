package aetherautil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
	"github.com/aethera-eia/aethera/internal/orchestrator"
)

// runRequestBody is the JSON shape POST /runs accepts: a project id,
// the raw AOI payload (GeoJSON text or WKT), and the project config.
type runRequestBody struct {
	ProjectID     string              `json:"project_id"`
	AOI           string              `json:"aoi"`
	AOISourcePath string              `json:"aoi_source_path,omitempty"`
	Config        model.ProjectConfig `json:"config"`
	TaskID        string              `json:"task_id,omitempty"`
}

type runResponseBody struct {
	RunID  string `json:"run_id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// server bundles the orchestrator with the registry it shares, so
// GET /runs/{id} can answer from the same AnalysisContext a run was
// submitted against.
type server struct {
	o   *orchestrator.Orchestrator
	log *logrus.Entry
}

// serve starts the HTTP API, the long-running analogue of the run
// command: POST /runs submits a run synchronously and returns its
// outcome; GET /runs/{id} looks up a previously submitted run's status.
func serve(cmd *cobra.Command, cfg *Cfg) error {
	log := logrus.NewEntry(logrus.StandardLogger())
	ctx := context.Background()

	o, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		return err
	}
	srv := &server{o: o, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", srv.handleSubmitRun)
	mux.HandleFunc("GET /runs/{id}", srv.handleGetRun)

	addr := cfg.GetString("listen_addr")
	cmd.Printf("aethera serving on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, runResponseBody{Error: "malformed request body: " + err.Error()})
		return
	}
	if body.AOI == "" {
		writeJSON(w, http.StatusBadRequest, runResponseBody{Error: "aoi is required"})
		return
	}

	runID, err := s.o.Run(r.Context(), orchestrator.RunRequest{
		ProjectID:     body.ProjectID,
		AOIInput:      []byte(body.AOI),
		AOISourcePath: body.AOISourcePath,
		Config:        body.Config,
		TaskID:        body.TaskID,
	})
	if err != nil {
		s.log.WithError(err).WithField("run_id", runID).Warn("run failed")
		writeJSON(w, httpStatusFor(err), runResponseBody{RunID: runID, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runResponseBody{RunID: runID, Status: string(model.StatusCompleted)})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.o.AC.Registry.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, runResponseBody{RunID: id, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// httpStatusFor maps an orchestrator error's Kind to an HTTP status:
// caller mistakes (bad AOI, missing required dataset) are 4xx, anything
// else is a 500.
func httpStatusFor(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.InvalidInput, errs.DatasetMissing:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
