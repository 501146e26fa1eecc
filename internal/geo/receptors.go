package geo

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/op"
)

// ReceptorClass names the receptor categories 
type ReceptorClass string

const (
	ReceptorProtectedArea ReceptorClass = "protected_area"
	ReceptorSettlement    ReceptorClass = "settlement"
	ReceptorWaterBody     ReceptorClass = "water_body"
)

// ReceptorDistance is one receptor class's nearest-neighbor result.
type ReceptorDistance struct {
	Class        ReceptorClass `json:"class"`
	NearestID    string        `json:"nearest_id,omitempty"`
	DistanceKM   *float64      `json:"distance_km"` // null when beyond the cap
}

// ReceptorDistancesResult is processed/receptor_distances.json.
type ReceptorDistancesResult struct {
	Receptors []ReceptorDistance `json:"receptors"`
	MaxKM     float64            `json:"max_distance_km"`
}

// Receptors computes the nearest-neighbor distance from aoi's boundary
// to each receptor class's features, reporting distances beyond maxKM
// as null.4.
func Receptors(classes map[ReceptorClass]FeatureSet, aoi geom.Polygonal, maxKM float64) ReceptorDistancesResult {
	boundary := aoiBoundary(aoi)

	order := []ReceptorClass{ReceptorProtectedArea, ReceptorSettlement, ReceptorWaterBody}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var out []ReceptorDistance
	for _, class := range order {
		fs := classes[class]
		distM, id, ok := nearestDistanceM(fs.Features, boundary)
		if !ok {
			out = append(out, ReceptorDistance{Class: class, DistanceKM: nil})
			continue
		}
		km := round6(distM / 1000)
		if km > maxKM {
			out = append(out, ReceptorDistance{Class: class, NearestID: id, DistanceKM: nil})
			continue
		}
		kmCopy := km
		out = append(out, ReceptorDistance{Class: class, NearestID: id, DistanceKM: &kmCopy})
	}
	return ReceptorDistancesResult{Receptors: out, MaxKM: maxKM}
}

// aoiBoundary returns a geometry representing aoi's boundary for
// distance computation. op.Distance measures between two geom.Geom
// values, so the polygon itself (not just its ring) is used; the
// polyclip-backed Intersection/Distance machinery already treats the
// filled polygon as its boundary for nearest-point purposes.
func aoiBoundary(aoi geom.Polygonal) geom.Geom {
	polys := aoi.Polygons()
	if len(polys) == 1 {
		return polys[0]
	}
	mp := make(geom.MultiPolygon, len(polys))
	copy(mp, polys)
	return mp
}
