// Package geo implements AETHERA's Geospatial Stages :
// land cover, biodiversity overlay, receptors, emissions, and KPIs. Each
// stage reads a FeatureSet (the in-memory representation the Dataset
// Cache produces for a vector dataset, playing the same role the
// teacher's sr.Reader plays for gridded source-receptor matrices) and
// writes exactly one canonical artifact.
package geo

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/op"

	"github.com/aethera-eia/aethera/internal/model"
)

// Feature is one row of a vector dataset: a geometry plus its attribute
// table, the same loose shape DecodeRowFields hands back from a
// shapefile (geometry + string-keyed attributes).
type Feature struct {
	ID         string
	Geom       geom.Geom
	Attributes map[string]string
}

// FeatureSet is what the Dataset Cache (internal/cache) returns for a
// vector dataset request: a slice of features already clipped to the
// requested AOI bounding box.
type FeatureSet struct {
	Features []Feature
}

// Attr returns a string attribute, or "" if absent.
func (f Feature) Attr(name string) string {
	return f.Attributes[name]
}

// Polygonal returns f.Geom as a Polygonal, flattening MultiPolygon, or
// nil if the geometry carries no area.
func (f Feature) Polygonal() geom.Polygonal {
	switch g := f.Geom.(type) {
	case geom.Polygon:
		return g
	case geom.MultiPolygon:
		return g
	default:
		return nil
	}
}

// clipToAOI intersects every polygonal feature in fs with aoi, dropping
// features with empty or degenerate intersections, and summing the
// intersection's area. Distances and overlays throughout this package
// operate on these clipped features, never on the raw unclipped source.
func clipToAOI(fs FeatureSet, aoi geom.Polygonal) []Feature {
	var out []Feature
	for _, f := range fs.Features {
		p := f.Polygonal()
		if p == nil {
			out = append(out, f) // point/line features pass through for distance use
			continue
		}
		inter := p.Intersection(aoi)
		if len(inter) == 0 || inter.Area() <= 0 {
			continue
		}
		out = append(out, Feature{ID: f.ID, Geom: inter, Attributes: f.Attributes})
	}
	return out
}

// nearestDistanceM returns the minimum distance in meters from aoi's
// boundary to any feature in fs, and the identifier of the nearest
// feature (ties broken by the smaller identifier.4).
func nearestDistanceM(fs []Feature, aoiBoundary geom.Geom) (float64, string, bool) {
	type cand struct {
		id   string
		dist float64
	}
	var cands []cand
	for _, f := range fs {
		d := op.Distance(aoiBoundary, f.Geom)
		cands = append(cands, cand{id: f.ID, dist: d})
	}
	if len(cands) == 0 {
		return 0, "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})
	return cands[0].dist, cands[0].id, true
}

// AOIPolygonal combines a normalized AOI's (possibly multi-part)
// working-CRS features into the single geom.Polygonal every stage in
// this package operates on.
func AOIPolygonal(aoi *model.AOI) geom.Polygonal {
	if len(aoi.Features) == 1 {
		return aoi.Features[0]
	}
	mp := make(geom.MultiPolygon, 0, len(aoi.Features))
	for _, f := range aoi.Features {
		if p, ok := f.(geom.Polygon); ok {
			mp = append(mp, p)
			continue
		}
		if inner, ok := f.(geom.MultiPolygon); ok {
			mp = append(mp, inner...)
		}
	}
	return mp
}
