// Package model holds the data types shared across AETHERA's analytical
// core: projects, runs, AOIs, dataset descriptors, feature vectors, rule
// sets, and the run manifest.
package model

import (
	"time"

	"github.com/ctessum/geom"
)

// Project is the persistent, (mostly) immutable record a Run belongs to.
type Project struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Country   string                 `json:"country,omitempty"` // ISO 3166-1 alpha-3
	Sector    string                 `json:"sector"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RunStatus enumerates the lifecycle states of a Run.
type RunStatus string

const (
	StatusPending    RunStatus = "PENDING"
	StatusProcessing RunStatus = "PROCESSING"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
	StatusRevoked    RunStatus = "REVOKED"
)

// ProjectConfig is the project descriptor passed to the orchestrator.
type ProjectConfig struct {
	Type         string                 `json:"type"`
	CapacityMW   float64                `json:"capacity_mw,omitempty"`
	Country      string                 `json:"country,omitempty"`
	HorizonYears int                    `json:"horizon_years,omitempty"`
	Options      map[string]interface{} `json:"options,omitempty"`
}

// Run is the persistent record of one orchestrator invocation.
type Run struct {
	ID           string        `json:"run_id"`
	ProjectID    string        `json:"project_id"`
	AOIWGS84     []byte        `json:"aoi_wgs84"` // canonical GeoJSON, EPSG:4326
	Config       ProjectConfig `json:"config"`
	Status       RunStatus     `json:"status"`
	OutputDir    string        `json:"output_dir"`
	ManifestPath string        `json:"manifest_path,omitempty"`
	Country      string        `json:"country,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at,omitempty"`
}

// AOI is a normalized Area of Interest: one or more polygonal features,
// kept in both the wire CRS (WGS84) and the working metric CRS.
type AOI struct {
	Features    []geom.Polygonal // in working CRS
	WGS84       []byte           // canonical GeoJSON Feature/FeatureCollection, EPSG:4326
	WorkingCRS  string           // e.g. "EPSG:3035"
	AreaM2      float64          // total area in the working CRS
	BBoxWGS84   [4]float64       // minx, miny, maxx, maxy
}

// DatasetFormat enumerates the recognized on-disk dataset encodings.
type DatasetFormat string

const (
	FormatShapefile DatasetFormat = "shp"
	FormatGeoPackage DatasetFormat = "gpkg"
	FormatGeoTIFF   DatasetFormat = "tif"
	FormatParquet   DatasetFormat = "parquet"
	FormatCSV       DatasetFormat = "csv"
)

// DatasetDescriptor identifies and locates one catalog dataset.
type DatasetDescriptor struct {
	LogicalName string        `json:"logical_name"`
	Country     string        `json:"country,omitempty"` // empty == global/continental
	Path        string        `json:"path"`
	Format      DatasetFormat `json:"format"`
	ModTime     time.Time     `json:"mtime"`
	SizeBytes   int64         `json:"size_bytes"`
	CRS         string        `json:"crs,omitempty"`
	Required    bool          `json:"required"`
}

// DatasetAvailability is one entry of dataset_availability.json.
type DatasetAvailability struct {
	Present  bool   `json:"present"`
	Path     string `json:"path,omitempty"`
	Required bool   `json:"required"`
	Reason   string `json:"reason,omitempty"`
}

// FeatureSchemaEntry is one named, defaulted scalar in a vector schema.
type FeatureSchemaEntry struct {
	Name    string
	Default float64
}

// FeatureVector is the materialized, ordered set of named scalars built
// for one ML ensemble's prediction call.
type FeatureVector struct {
	SchemaVersion string
	Values        map[string]float64
	Defaulted     []string // keys that fell back to the schema default
}

// Driver is one (feature, contribution) pair in a prediction explanation.
type Driver struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// ModelRun records how one ensemble reached its prediction.
type ModelRun struct {
	Name                    string   `json:"name"`
	Version                 string   `json:"version"`
	TrainingDataFingerprint string   `json:"training_data_fingerprint,omitempty"`
	FeatureCount            int      `json:"feature_count"`
	SchemaVersion           string   `json:"schema_version"`
	Members                 []string `json:"members"`
	LoadPath                string   `json:"load_path"` // "pretrained" | "fit" | "synthetic"
	DefaultedFeatures       []string `json:"defaulted_features,omitempty"`
}

// Prediction is the common shape returned by every ML ensemble.
type Prediction struct {
	Score      float64    `json:"score"`
	Category   string     `json:"category"`
	Confidence float64    `json:"confidence"`
	Drivers    []Driver   `json:"drivers"`
	ModelRun   ModelRun   `json:"model_run"`
}

// Rule is one legal/compliance rule drawn from a country rule set.
type Rule struct {
	ID              string                 `json:"id" yaml:"id"`
	Name            string                 `json:"name" yaml:"name"`
	Description     string                 `json:"description" yaml:"description"`
	Category        string                 `json:"category" yaml:"category"`
	Severity        string                 `json:"severity" yaml:"severity"` // critical|high|medium|low|informational
	Condition       map[string]interface{} `json:"condition" yaml:"condition"`
	JSONLogic       string                 `json:"jsonlogic,omitempty" yaml:"jsonlogic,omitempty"`
	MessageTemplate string                 `json:"message_template" yaml:"message_template"`
	References      []string               `json:"references,omitempty" yaml:"references,omitempty"`
}

// RuleSet is one country's ordered, immutable bundle of rules.
type RuleSet struct {
	CountryCode string                 `json:"country_code" yaml:"country_code"`
	CountryName string                 `json:"country_name" yaml:"country_name"`
	Version     string                 `json:"version" yaml:"version"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Rules       []Rule                 `json:"rules" yaml:"rules"`
}

// RuleStatus is the per-rule evaluation outcome.
type RuleStatus struct {
	Rule    Rule   `json:"rule"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// LegalEvaluationResult is the output of evaluating a RuleSet against a
// metrics namespace.
type LegalEvaluationResult struct {
	OverallCompliant   bool         `json:"overall_compliant"`
	CriticalViolations []RuleStatus `json:"critical_violations"`
	Warnings           []RuleStatus `json:"warnings"`
	Informational      []RuleStatus `json:"informational"`
}

// Artifact is one manifest entry: a produced file and its content hash.
type Artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Manifest is the single commit-point JSON document for a run.
type Manifest struct {
	RunID      string        `json:"run_id"`
	ProjectID  string        `json:"project_id"`
	Status     RunStatus     `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	AOI        interface{}   `json:"aoi"` // GeoJSON Feature, EPSG:4326
	Config     ProjectConfig `json:"config"`
	Country    string        `json:"country,omitempty"`
	Scores     struct {
		Biodiversity float64 `json:"biodiversity"`
		RESM         float64 `json:"resm"`
		AHSM         float64 `json:"ahsm"`
		CIM          float64 `json:"cim"`
	} `json:"scores"`
	Emissions struct {
		BaselineTCO2e       float64 `json:"baseline_tco2e"`
		ProjectTCO2ePerYear float64 `json:"project_tco2e_per_year"`
		NetTCO2e            float64 `json:"net_tco2e"`
	} `json:"emissions"`
	Legal struct {
		OverallCompliant bool `json:"overall_compliant"`
		Critical         int  `json:"critical"`
		Warnings         int  `json:"warnings"`
	} `json:"legal"`
	Artifacts      []Artifact  `json:"artifacts"`
	ModelRuns      []ModelRun  `json:"model_runs"`
	SkippedStages  []SkipRecord `json:"skipped_stages,omitempty"`
	SoftBudgetWarn bool        `json:"soft_budget_exceeded,omitempty"`
}

// SkipRecord documents a non-fatal stage skip.
type SkipRecord struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// ErrorRecord is the shape persisted to <run_dir>/error.json.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Stage   string `json:"stage"`
}
