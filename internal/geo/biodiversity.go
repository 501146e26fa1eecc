package geo

import (
	"encoding/json"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// BiodiversityOverlay is the aggregate result of intersecting the AOI
// with regional and/or global protected-area datasets: the regional
// dataset is preferred, falling back to global, and the two are
// combined with deduplication on site identifier when both are present.
type BiodiversityOverlay struct {
	ProtectedOverlapPct float64 `json:"protected_overlap_pct"`
	SiteCount           int     `json:"site_count"`
	NaturaClippedGeoJSON []byte `json:"-"`
	OverlapGeoJSON       []byte `json:"-"`
}

// BiodiversityOverlayStage intersects aoi with the protected-area
// FeatureSets. regional or global may be the zero value (no features)
// when that dataset is absent from the catalog; at least one of the two
// non-empty FeatureSets must supply the overlay for it to be meaningful.
func BiodiversityOverlayStage(regional, global FeatureSet, aoi geom.Polygonal) (BiodiversityOverlay, error) {
	combined := dedupeBySiteID(regional, global)
	clipped := clipToAOI(combined, aoi)

	var overlapArea float64
	var naturaGeoms, overlapGeoms []geom.Geom
	for _, f := range combined.Features {
		if g := f.Polygonal(); g != nil {
			naturaGeoms = append(naturaGeoms, g)
		}
	}
	for _, f := range clipped {
		p := f.Polygonal()
		if p == nil {
			continue
		}
		overlapArea += p.Area()
		overlapGeoms = append(overlapGeoms, p)
	}

	aoiArea := aoi.Area()
	pct := 0.0
	if aoiArea > 0 {
		pct = round6(overlapArea / aoiArea * 100)
	}

	naturaJSON, err := encodeGeoJSONCollection(naturaGeoms)
	if err != nil {
		return BiodiversityOverlay{}, err
	}
	overlapJSON, err := encodeGeoJSONCollection(overlapGeoms)
	if err != nil {
		return BiodiversityOverlay{}, err
	}

	return BiodiversityOverlay{
		ProtectedOverlapPct:  pct,
		SiteCount:            len(combined.Features),
		NaturaClippedGeoJSON: naturaJSON,
		OverlapGeoJSON:       overlapJSON,
	}, nil
}

// dedupeBySiteID combines regional and global FeatureSets, preferring
// the regional feature when the same site identifier appears in both.
func dedupeBySiteID(regional, global FeatureSet) FeatureSet {
	seen := make(map[string]bool, len(regional.Features))
	out := make([]Feature, 0, len(regional.Features)+len(global.Features))
	for _, f := range regional.Features {
		out = append(out, f)
		seen[f.ID] = true
	}
	for _, f := range global.Features {
		if seen[f.ID] {
			continue
		}
		out = append(out, f)
	}
	return FeatureSet{Features: out}
}

// SensitivityGeoJSON encodes the overlay's scalar summary as a single
// GeoJSON Feature over the AOI geometry, so sensitivity.geojson stays a
// valid map layer even though its payload is a summary rather than a
// distinct geometry set.
func SensitivityGeoJSON(ov BiodiversityOverlay, aoi geom.Polygonal) ([]byte, error) {
	type properties struct {
		ProtectedOverlapPct float64 `json:"protected_overlap_pct"`
		SiteCount           int     `json:"site_count"`
	}
	type feature struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties properties      `json:"properties"`
	}
	fc := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection"}

	props := properties{ProtectedOverlapPct: ov.ProtectedOverlapPct, SiteCount: ov.SiteCount}
	if aoi != nil {
		raw, err := geojson.ToGeoJSON(aoi)
		if err == nil {
			b, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: b, Properties: props})
		}
	}
	if len(fc.Features) == 0 {
		fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: json.RawMessage("null"), Properties: props})
	}
	return json.Marshal(fc)
}

// encodeGeoJSONCollection serializes geometries as a GeoJSON
// FeatureCollection, used for the natura_clipped/overlap artifacts that
// downstream map viewers render directly.
func encodeGeoJSONCollection(geoms []geom.Geom) ([]byte, error) {
	type feature struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties struct{}        `json:"properties"`
	}
	fc := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection"}

	for _, g := range geoms {
		raw, err := geojson.ToGeoJSON(g)
		if err != nil {
			continue
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: b})
	}
	return json.Marshal(fc)
}
