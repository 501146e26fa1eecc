package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/geo"
	"github.com/aethera-eia/aethera/internal/hash"
	"github.com/aethera-eia/aethera/internal/model"
)

// datasetNames enumerates the logical catalog datasets AETHERA's
// geospatial stages and country resolution consume.
var datasetNames = []string{
	"land_cover",
	"biodiversity_regional",
	"biodiversity_global",
	"settlement",
	"water_body",
	"protected_area",
	"admin_boundaries",
}

// requirementsFor builds the run's required-dataset set from the
// project config's "required_datasets" option. 
// required-ness to "the configured project type"; AETHERA leaves the
// per-type table to the caller's configuration rather than a fixed
// built-in mapping, since project types are deployment-specific.
func requirementsFor(cfg model.ProjectConfig) map[string]bool {
	required := map[string]bool{}
	if cfg.Options != nil {
		if raw, ok := cfg.Options["required_datasets"]; ok {
			for _, name := range toStringSlice(raw) {
				required[name] = true
			}
		}
	}
	out := make(map[string]bool, len(datasetNames))
	for _, n := range datasetNames {
		out[n] = required[n]
	}
	return out
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// extFormat infers a DatasetFormat from a file extension, duplicating
// the catalog's own recognized-extension table because the cache's
// BuildFunc only receives a Fingerprint, not the originating Catalog
// descriptor.
var extFormat = map[string]model.DatasetFormat{
	".shp":     model.FormatShapefile,
	".gpkg":    model.FormatGeoPackage,
	".tif":     model.FormatGeoTIFF,
	".tiff":    model.FormatGeoTIFF,
	".parquet": model.FormatParquet,
	".csv":     model.FormatCSV,
}

// featureSetFilterExpr packs the idField/attrFields a FeatureSet load
// needs into Fingerprint.FilterExpr, the one free-form field the cache
// key carries beyond path/mtime/size/bbox.
func featureSetFilterExpr(idField string, attrFields []string) string {
	return idField + "|" + strings.Join(attrFields, ",")
}

func parseFeatureSetFilterExpr(expr string) (idField string, attrFields []string) {
	parts := strings.SplitN(expr, "|", 2)
	idField = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		attrFields = strings.Split(parts[1], ",")
	}
	return idField, attrFields
}

// BuildFeatureSet is the cache.BuildFunc every AnalysisContext should be
// constructed with (config.Build's buildFunc parameter): it
// reconstructs a DatasetDescriptor from the fingerprint's path/mtime/
// size, decodes the packed idField/attrFields from FilterExpr, and
// loads through internal/geo exactly as a direct LoadFeatureSet call
// would.
func BuildFeatureSet(_ context.Context, fp hash.Fingerprint) (interface{}, error) {
	format, ok := extFormat[strings.ToLower(filepath.Ext(fp.Path))]
	if !ok {
		return nil, errs.New(errs.DatasetCorrupt, "dataset_cache_build", fmt.Sprintf("unrecognized dataset extension for %s", fp.Path))
	}
	idField, attrFields := parseFeatureSetFilterExpr(fp.FilterExpr)
	desc := model.DatasetDescriptor{
		Path:      fp.Path,
		Format:    format,
		ModTime:   time.Unix(fp.ModTimeUTC, 0).UTC(),
		SizeBytes: fp.SizeBytes,
	}
	return geo.LoadFeatureSet(desc, idField, attrFields...)
}

// loadFeatureSet locates name in the catalog, then loads it through the
// shared dataset cache (single-flight per fingerprint). ok=false with
// a nil error reports a dataset that is absent and not required.
func (o *Orchestrator) loadFeatureSet(ctx context.Context, name, country string, required bool, idField string, attrFields []string, aoiNorm *model.AOI) (geo.FeatureSet, bool, error) {
	desc, err := o.AC.Catalog.Locate(name, country, required)
	if err != nil {
		return geo.FeatureSet{}, false, err
	}
	if desc == nil {
		return geo.FeatureSet{}, false, nil
	}

	fp := hash.Fingerprint{
		Path:       desc.Path,
		ModTimeUTC: desc.ModTime.UTC().Unix(),
		SizeBytes:  desc.SizeBytes,
		BBox:       workingBBox(aoiNorm),
		FilterExpr: featureSetFilterExpr(idField, attrFields),
	}
	v, err := o.AC.Cache.Load(ctx, fp)
	if err != nil {
		return geo.FeatureSet{}, false, errs.Wrap(errs.DatasetCorrupt, "dataset_cache_load", err)
	}
	fs, ok := v.(geo.FeatureSet)
	if !ok {
		return geo.FeatureSet{}, false, errs.New(errs.DatasetCorrupt, "dataset_cache_load", fmt.Sprintf("unexpected cache value type for %s", name))
	}
	return fs, true, nil
}

// workingBBox rounds aoiNorm's working-CRS bounding box to the nearest
// meter.
func workingBBox(aoiNorm *model.AOI) [4]float64 {
	var bbox [4]float64
	first := true
	for _, f := range aoiNorm.Features {
		b := f.Bounds()
		if first {
			bbox = [4]float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}
			first = false
			continue
		}
		if b.Min.X < bbox[0] {
			bbox[0] = b.Min.X
		}
		if b.Min.Y < bbox[1] {
			bbox[1] = b.Min.Y
		}
		if b.Max.X > bbox[2] {
			bbox[2] = b.Max.X
		}
		if b.Max.Y > bbox[3] {
			bbox[3] = b.Max.Y
		}
	}
	for i := range bbox {
		bbox[i] = hash.RoundMeter(bbox[i])
	}
	return bbox
}
