package geo

import (
	"sort"

	"github.com/ctessum/geom"
)

// classGroup buckets raw land-cover class codes into the four derived
// ratios: agricultural, natural, impervious, forest.
// Grounded on CORINE Land Cover's level-1 nomenclature, the dataset
// AETHERA's catalog resolves "corine" against.
var classGroup = map[string]string{
	"agricultural": "agricultural",
	"arable":       "agricultural",
	"pasture":      "agricultural",
	"forest":       "forest",
	"woodland":     "forest",
	"natural":      "natural",
	"wetland":      "natural",
	"water":        "natural",
	"urban":        "impervious",
	"industrial":   "impervious",
	"transport":    "impervious",
}

// ClassArea is the area attributed to one land-cover class.
type ClassArea struct {
	Class  string  `json:"class"`
	AreaM2 float64 `json:"area_m2"`
	Pct    float64 `json:"pct"`
}

// LandCoverSummary is processed/land_cover_summary.json.
type LandCoverSummary struct {
	TotalAreaM2       float64     `json:"total_area_m2"`
	Classes           []ClassArea `json:"classes"`
	AgriculturalRatio float64     `json:"agricultural_ratio"`
	NaturalRatio      float64     `json:"natural_ratio"`
	ImperviousRatio   float64     `json:"impervious_ratio"`
	ForestRatio       float64     `json:"forest_ratio"`
}

// LandCover clips the land-cover FeatureSet to aoi and produces a
// per-class area summary plus the four derived ratios.
func LandCover(fs FeatureSet, aoi geom.Polygonal, classField string) LandCoverSummary {
	clipped := clipToAOI(fs, aoi)

	areas := map[string]float64{}
	var total float64
	for _, f := range clipped {
		p := f.Polygonal()
		if p == nil {
			continue
		}
		a := p.Area()
		class := f.Attr(classField)
		areas[class] += a
		total += a
	}

	classes := make([]ClassArea, 0, len(areas))
	for class, a := range areas {
		pct := 0.0
		if total > 0 {
			pct = a / total * 100
		}
		classes = append(classes, ClassArea{Class: class, AreaM2: round6(a), Pct: round6(pct)})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Class < classes[j].Class })

	ratio := func(group string) float64 {
		if total <= 0 {
			return 0
		}
		var sum float64
		for class, a := range areas {
			if classGroup[class] == group {
				sum += a
			}
		}
		return round6(sum / total * 100)
	}

	return LandCoverSummary{
		TotalAreaM2:       round6(total),
		Classes:           classes,
		AgriculturalRatio: ratio("agricultural"),
		NaturalRatio:      ratio("natural"),
		ImperviousRatio:   ratio("impervious"),
		ForestRatio:       ratio("forest"),
	}
}
