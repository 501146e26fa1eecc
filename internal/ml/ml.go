// Package ml implements AETHERA's four ensemble ML predictors:
// Biodiversity, RESM, AHSM, and CIM. Each ensemble combines two or more
// heterogeneous learners by simple averaging, declares a versioned
// feature vector schema, and records which loading path (pretrained,
// fit, or synthetic) produced its members. Fitting and prediction are
// built on gonum.org/v1/gonum/stat for the moment/covariance machinery
// the univariate linear learners need.
package ml

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// LoadPath records which of the three loading strategies produced an
// ensemble's members.
const (
	LoadPathPretrained = "pretrained"
	LoadPathFit         = "fit"
	LoadPathSynthetic   = "synthetic"
)

// Bin is one named category with its lower threshold (inclusive).
type Bin struct {
	Name      string
	Threshold float64
}

// Schema declares an ensemble's ordered, versioned feature vector shape.
type Schema struct {
	Version string
	Fields  []model.FeatureSchemaEntry
}

// FieldNames returns the schema's field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Defaults returns the schema's declared default for each field, in
// declaration order.
func (s Schema) Defaults() []float64 {
	d := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		d[i] = f.Default
	}
	return d
}

// fields builds a []model.FeatureSchemaEntry from (name, default) pairs,
// keeping ensemble schema declarations compact and readable.
func fields(pairs ...interface{}) []model.FeatureSchemaEntry {
	entries := make([]model.FeatureSchemaEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		def := pairs[i+1].(float64)
		entries = append(entries, model.FeatureSchemaEntry{Name: name, Default: def})
	}
	return entries
}

// BuildVector assembles a FeatureVector from a flat metrics namespace by
// explicit key lookup, never by blind spread of the whole map. Missing
// keys fall back to the schema's declared default and are recorded in
// Defaulted.
func (s Schema) BuildVector(metrics map[string]float64) model.FeatureVector {
	values := make(map[string]float64, len(s.Fields))
	var defaulted []string
	for _, f := range s.Fields {
		if v, ok := metrics[f.Name]; ok {
			values[f.Name] = v
		} else {
			values[f.Name] = f.Default
			defaulted = append(defaulted, f.Name)
		}
	}
	return model.FeatureVector{SchemaVersion: s.Version, Values: values, Defaulted: defaulted}
}

// Learner is one member of an ensemble: a simple linear model fit (or
// synthesized) over the schema's feature order.
type Learner struct {
	Name    string
	Weights map[string]float64
	Bias    float64
	Means   map[string]float64 // training-set feature means, for driver computation
}

// predict returns the learner's raw (unclamped) scalar output for vec.
func (l Learner) predict(vec model.FeatureVector) float64 {
	out := l.Bias
	for name, w := range l.Weights {
		out += w * vec.Values[name]
	}
	return out
}

// Fit trains a Learner by univariate weighting: each feature's weight is
// its covariance with the target divided by its variance (equivalent to
// the simple-linear-regression slope against the target, the approach
// gonum/stat's Covariance/Variance pair is built for), combined additively.
// This keeps fitting deterministic and dependency-light while still
// exercising gonum's moment statistics rather than hand-rolling them.
func Fit(name string, fieldNames []string, rows [][]float64, targets []float64) Learner {
	n := len(rows)
	weights := make(map[string]float64, len(fieldNames))
	means := make(map[string]float64, len(fieldNames))
	targetMean := stat.Mean(targets, nil)

	for j, field := range fieldNames {
		col := make([]float64, n)
		for i, row := range rows {
			col[i] = row[j]
		}
		mean := stat.Mean(col, nil)
		means[field] = mean
		variance := stat.Variance(col, nil)
		if variance == 0 {
			weights[field] = 0
			continue
		}
		cov := stat.Covariance(col, targets, nil)
		weights[field] = cov / variance
	}

	bias := targetMean
	for j, field := range fieldNames {
		bias -= weights[field] * means[field]
		_ = j
	}
	return Learner{Name: name, Weights: weights, Bias: bias, Means: means}
}

// Ensemble is the shared shape every predictor uses: N learners
// averaged, declared category bins, and a loading policy.
type Ensemble struct {
	Name     string
	Version  string
	Schema   Schema
	Bins     []Bin // ascending thresholds; Bins[0] is the lowest category
	Members  []Learner
	LoadPath string
	TrainingDataFingerprint string
}

// Predict implements the shared predict(feature_vector) contract.
func (e Ensemble) Predict(vec model.FeatureVector) (model.Prediction, error) {
	if vec.SchemaVersion != e.Schema.Version {
		return model.Prediction{}, errs.New(errs.ModelSchemaMismatch, e.Name,
			fmt.Sprintf("vector schema %s does not match ensemble schema %s", vec.SchemaVersion, e.Schema.Version))
	}
	if len(e.Members) == 0 {
		return model.Prediction{}, errs.New(errs.ModelSchemaMismatch, e.Name, "ensemble has no members")
	}

	var sum float64
	for _, m := range e.Members {
		sum += clampScore(m.predict(vec))
	}
	score := sum / float64(len(e.Members))
	score = clampScore(score)

	category := categorize(score, e.Bins)
	drivers := computeDrivers(e.Members, vec)
	confidence := confidenceFromSpread(e.Members, vec)

	names := make([]string, len(e.Members))
	for i, m := range e.Members {
		names[i] = m.Name
	}

	return model.Prediction{
		Score:      round2(score),
		Category:   category,
		Confidence: round2(confidence),
		Drivers:    drivers,
		ModelRun: model.ModelRun{
			Name:                    e.Name,
			Version:                 e.Version,
			TrainingDataFingerprint: e.TrainingDataFingerprint,
			FeatureCount:            len(e.Schema.Fields),
			SchemaVersion:           e.Schema.Version,
			Members:                 names,
			LoadPath:                e.LoadPath,
			DefaultedFeatures:       vec.Defaulted,
		},
	}, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// categorize returns the name of the highest bin whose threshold v meets
// or exceeds.
func categorize(v float64, bins []Bin) string {
	if len(bins) == 0 {
		return ""
	}
	category := bins[0].Name
	for _, b := range bins {
		if v >= b.Threshold {
			category = b.Name
		}
	}
	return category
}

// computeDrivers ranks features by their average, across members,
// (weight * deviation from the member's training mean), a heuristic
// stand-in for SHAP-style explainers. Positive contribution pushes the
// score up.
func computeDrivers(members []Learner, vec model.FeatureVector) []model.Driver {
	contrib := map[string]float64{}
	for _, m := range members {
		for name, w := range m.Weights {
			dev := vec.Values[name] - m.Means[name]
			contrib[name] += w * dev
		}
	}
	names := make([]string, 0, len(contrib))
	for n := range contrib {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if absf(contrib[names[j]]) > absf(contrib[names[i]]) {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	k := len(names)
	if k > 5 {
		k = 5
	}
	drivers := make([]model.Driver, 0, k)
	for _, n := range names[:k] {
		avg := contrib[n] / float64(len(members))
		drivers = append(drivers, model.Driver{Feature: n, Contribution: round2(avg)})
	}
	return drivers
}

// confidenceFromSpread returns a confidence in [0,1] that decreases as
// member predictions diverge -- tight agreement across learners is a
// reasonable stand-in for predictive confidence in the absence of
// calibrated probabilities.
func confidenceFromSpread(members []Learner, vec model.FeatureVector) float64 {
	if len(members) == 1 {
		return 0.8
	}
	scores := make([]float64, len(members))
	for i, m := range members {
		scores[i] = clampScore(m.predict(vec))
	}
	sd := stat.StdDev(scores, nil)
	conf := 1 - sd/50
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
