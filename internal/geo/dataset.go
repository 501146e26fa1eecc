package geo

import (
	"fmt"

	"github.com/ctessum/geom/encoding/shp"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// LoadFeatureSet reads a catalog-located dataset into a FeatureSet,
// carrying through idField/attrFields as the resulting Features'
// Attributes. The catalog only tags shapefiles as an overlay/receptor
// format today , so this reads
// via geom/encoding/shp.Decoder.DecodeRowFields, the same reader
// internal/aoi depends on for shapefile AOI input.
func LoadFeatureSet(desc model.DatasetDescriptor, idField string, attrFields ...string) (FeatureSet, error) {
	switch desc.Format {
	case model.FormatShapefile:
		return loadShapefileFeatureSet(desc.Path, idField, attrFields)
	default:
		return FeatureSet{}, errs.New(errs.DatasetCorrupt, "geo_dataset_load",
			fmt.Sprintf("unsupported dataset format %q for %s", desc.Format, desc.Path))
	}
}

func loadShapefileFeatureSet(path, idField string, attrFields []string) (FeatureSet, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return FeatureSet{}, errs.Wrap(errs.DatasetMissing, "geo_dataset_load", err)
	}
	defer dec.Close()

	wanted := attrFields
	if idField != "" {
		wanted = append([]string{idField}, attrFields...)
	}

	var features []Feature
	for {
		g, fields, more := dec.DecodeRowFields(wanted...)
		if !more {
			break
		}
		id := fields[idField]
		if id == "" {
			id = fmt.Sprintf("%s#%d", path, len(features))
		}
		attrs := make(map[string]string, len(attrFields))
		for _, f := range attrFields {
			attrs[f] = fields[f]
		}
		features = append(features, Feature{ID: id, Geom: g, Attributes: attrs})
	}
	if err := dec.Error(); err != nil {
		return FeatureSet{}, errs.Wrap(errs.DatasetCorrupt, "geo_dataset_load", err)
	}
	return FeatureSet{Features: features}, nil
}
