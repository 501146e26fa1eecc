package orchestrator

import (
	"context"

	"github.com/aethera-eia/aethera/internal/geo"
	"github.com/aethera-eia/aethera/internal/hash"
	"github.com/aethera-eia/aethera/internal/model"
)

// landCoverClassField is the attribute name AETHERA's land-cover
// datasets are expected to carry the CORINE-derived class code under.
const landCoverClassField = "class"

// biodiversitySiteIDField names the site identifier attribute the
// regional/global protected-area datasets carry, used as the
// deduplication key in BiodiversityOverlayStage.
const biodiversitySiteIDField = "site_id"

// runGeospatialStages executes land cover, biodiversity overlay,
// receptors, emissions, and KPIs in that declared order, writing each
// stage's artifact and recording non-fatal dataset absences as skips.
// A DatasetCorrupt error from any input is always fatal, and aborts the
// whole run. Cooperative cancellation is also checked right after the
// land-cover stage, its own boundary ahead of the rest of the batch, so
// a cancel landing there yields a manifest with only
// land_cover_summary.json and dataset_availability.json as artifacts.
func (o *Orchestrator) runGeospatialStages(ctx context.Context, st *runState) (bool, error) {
	reqs := requirementsFor(st.req.Config)
	aoiPoly := geo.AOIPolygonal(st.aoiNorm)

	lcFS, _, err := o.loadOptional(ctx, st, "land_cover", "", []string{landCoverClassField}, reqs["land_cover"])
	if err != nil {
		return false, err
	}
	st.landCover = geo.LandCover(lcFS, aoiPoly, landCoverClassField)
	if err := o.saveJSON(ctx, st, st.runID+"/processed/land_cover_summary.json", st.landCover, true); err != nil {
		return false, err
	}
	st.publish("land_cover", 40, "land cover summary written")

	if revoked, rerr := o.checkCancel(ctx, st, "land_cover"); revoked || rerr != nil {
		return revoked, rerr
	}

	regFS, _, err := o.loadOptional(ctx, st, "biodiversity_regional", biodiversitySiteIDField, nil, reqs["biodiversity_regional"])
	if err != nil {
		return false, err
	}
	globFS, _, err := o.loadOptional(ctx, st, "biodiversity_global", biodiversitySiteIDField, nil, reqs["biodiversity_global"])
	if err != nil {
		return false, err
	}
	overlay, err := geo.BiodiversityOverlayStage(regFS, globFS, aoiPoly)
	if err != nil {
		st.skipped = append(st.skipped, model.SkipRecord{Stage: "biodiversity_overlay", Reason: err.Error()})
	} else {
		st.overlay = overlay
		sensGeoJSON, err := geo.SensitivityGeoJSON(overlay, aoiPoly)
		if err != nil {
			return false, err
		}
		if err := o.saveRaw(ctx, st, st.runID+"/processed/biodiversity/sensitivity.geojson", sensGeoJSON); err != nil {
			return false, err
		}
		if len(overlay.NaturaClippedGeoJSON) > 0 {
			if err := o.saveRaw(ctx, st, st.runID+"/processed/biodiversity/natura_clipped.geojson", overlay.NaturaClippedGeoJSON); err != nil {
				return false, err
			}
		}
		if len(overlay.OverlapGeoJSON) > 0 {
			if err := o.saveRaw(ctx, st, st.runID+"/processed/biodiversity/overlap.geojson", overlay.OverlapGeoJSON); err != nil {
				return false, err
			}
		}
	}

	receptorDatasets := []struct {
		name  string
		class geo.ReceptorClass
	}{
		{"settlement", geo.ReceptorSettlement},
		{"water_body", geo.ReceptorWaterBody},
		{"protected_area", geo.ReceptorProtectedArea},
	}
	classes := make(map[geo.ReceptorClass]geo.FeatureSet, len(receptorDatasets))
	for _, rd := range receptorDatasets {
		fs, _, err := o.loadOptional(ctx, st, rd.name, "", nil, reqs[rd.name])
		if err != nil {
			return false, err
		}
		classes[rd.class] = fs
	}
	maxKM := o.AC.Config.MaxReceptorKM
	if maxKM <= 0 {
		maxKM = 50
	}
	st.receptors = geo.Receptors(classes, aoiPoly, maxKM)
	if err := o.saveJSON(ctx, st, st.runID+"/processed/receptor_distances.json", st.receptors, true); err != nil {
		return false, err
	}

	st.emissions = geo.Emissions(st.landCover, o.EmissionFactors, st.req.Config)
	if err := o.saveJSON(ctx, st, st.runID+"/processed/emissions_summary.json", st.emissions, true); err != nil {
		return false, err
	}

	st.kpis = geo.KPIs(geo.KPIInputs{
		LandCover: st.landCover,
		Overlay:   st.overlay,
		Receptors: st.receptors,
		Emissions: st.emissions,
		AOIAreaHa: st.aoiNorm.AreaM2 / 10000,
	})
	if err := o.saveJSON(ctx, st, st.runID+"/processed/environmental_kpis.json", st.kpis, true); err != nil {
		return false, err
	}
	return false, nil
}

// loadOptional loads a dataset through the catalog and shared cache,
// treating a merely-absent optional dataset as a recorded skip rather
// than an error. A present-but-corrupt dataset, or an absent required
// one, is returned as an error for the caller to propagate as fatal.
func (o *Orchestrator) loadOptional(ctx context.Context, st *runState, name, idField string, attrFields []string, required bool) (geo.FeatureSet, bool, error) {
	fs, ok, err := o.loadFeatureSet(ctx, name, st.country, required, idField, attrFields, st.aoiNorm)
	if err != nil {
		return geo.FeatureSet{}, false, err
	}
	if !ok {
		st.skipped = append(st.skipped, model.SkipRecord{Stage: name, Reason: "dataset not available"})
	}
	return fs, ok, nil
}

// saveRaw writes pre-encoded bytes (e.g. GeoJSON) through the storage
// backend and records it as a manifest artifact.
func (o *Orchestrator) saveRaw(ctx context.Context, st *runState, path string, data []byte) error {
	if err := o.AC.Storage.Save(ctx, path, data); err != nil {
		return err
	}
	st.artifacts = append(st.artifacts, model.Artifact{Path: path, SHA256: hash.SHA256Hex(data)})
	return nil
}
