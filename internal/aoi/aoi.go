// Package aoi implements AETHERA's Area of Interest loader :
// parsing a GeoJSON Feature/FeatureCollection/geometry, a shapefile, a WKT
// string, or a WKT text file into a normalized set of polygon features on
// the working Run, flattening multi-geometries and reprojecting from
// WGS84 (EPSG:4326) to a metric working CRS. It is grounded on the
// teacher's inmaputil.parseMask (geojson decode + type switch over
// geom.Polygon/geom.MultiPolygon) and on inmaputil.spatialRef /
// geom/proj.Parse for CRS handling.
package aoi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	geomshp "github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/op"
	"github.com/ctessum/geom/proj"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// WGS84Proj4 and LAEAEuropeProj4 are the proj4 definitions used for
// EPSG:4326 and EPSG:3035, respectively. geom/proj has no built-in EPSG
// lookup table, so AETHERA defines the two CRSes it actually uses the
// same way inmaputil.spatialRef resolves VarGrid.GridProj: by feeding a
// proj4 string to proj.Parse.
const (
	WGS84Proj4      = "+proj=longlat +datum=WGS84 +no_defs"
	LAEAEuropeProj4 = "+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"
)

// knownCRS maps the configuration-facing CRS names AETHERA accepts to
// their proj4 definitions.
var knownCRS = map[string]string{
	"EPSG:4326": WGS84Proj4,
	"EPSG:3035": LAEAEuropeProj4,
}

// Loader parses AOI inputs into normalized, reprojected features.
type Loader struct {
	WorkingCRS string // e.g. "EPSG:3035"
}

// NewLoader returns a Loader targeting workingCRS .
func NewLoader(workingCRS string) *Loader {
	if workingCRS == "" {
		workingCRS = "EPSG:3035"
	}
	return &Loader{WorkingCRS: workingCRS}
}

// Load parses raw AOI input (a GeoJSON document, a WKT string, or a path
// to a shapefile/WKT file, as identified by sniffing the content) and
// returns a normalized AOI with both CRS representations populated.
func (l *Loader) Load(raw []byte, sourcePath string) (*model.AOI, error) {
	polys, err := l.parse(raw, sourcePath)
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		return nil, errs.New(errs.InvalidInput, "aoi", "no polygon features found in AOI input")
	}

	wgs84, err := encodeFeatureCollection(polys)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
	}

	working, err := l.reproject(polys)
	if err != nil {
		return nil, err
	}

	var area float64
	bbox := [4]float64{math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for i, p := range working {
		a := p.Area()
		if a <= 0 {
			return nil, errs.New(errs.InvalidInput, "aoi", fmt.Sprintf("feature %d has zero or negative area", i))
		}
		area += a
	}
	for _, p := range polys {
		b := p.Bounds()
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

	features := make([]geom.Polygonal, len(working))
	for i, p := range working {
		features[i] = p
	}

	return &model.AOI{
		Features:    features,
		WGS84:       wgs84,
		WorkingCRS:  l.WorkingCRS,
		AreaM2:      area,
		BBoxWGS84:   bbox,
	}, nil
}

// parse dispatches to the format-specific parser based on content
// sniffing and, where available, the source path's extension.
func (l *Loader) parse(raw []byte, sourcePath string) ([]geom.Polygon, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	switch ext {
	case ".shp":
		return l.parseShapefile(sourcePath)
	case ".wkt":
		return l.parseWKTFile(sourcePath)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.InvalidInput, "aoi", "empty AOI input")
	}
	if trimmed[0] == '{' {
		return l.parseGeoJSON(trimmed)
	}
	upper := strings.ToUpper(strings.TrimSpace(string(trimmed)))
	if strings.HasPrefix(upper, "POLYGON") || strings.HasPrefix(upper, "MULTIPOLYGON") ||
		strings.HasPrefix(upper, "POINT") || strings.HasPrefix(upper, "LINESTRING") ||
		strings.HasPrefix(upper, "GEOMETRYCOLLECTION") {
		return l.parseWKTLines(bytes.NewReader(trimmed))
	}
	return nil, errs.New(errs.InvalidInput, "aoi", "unrecognized AOI input format")
}

// parseGeoJSON accepts a bare Geometry, a Feature, or a FeatureCollection,
// flattening multi-geometries the same way inmaputil.parseMask flattens a
// decoded geom.MultiPolygon into a slice of rings.
func (l *Loader) parseGeoJSON(raw []byte) ([]geom.Polygon, error) {
	var envelope struct {
		Type     string          `json:"type"`
		Geometry json.RawMessage `json:"geometry"`
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", fmt.Errorf("decoding GeoJSON: %w", err))
	}

	var rawGeoms []json.RawMessage
	switch envelope.Type {
	case "FeatureCollection":
		for _, f := range envelope.Features {
			if len(f.Geometry) > 0 {
				rawGeoms = append(rawGeoms, f.Geometry)
			}
		}
	case "Feature":
		if len(envelope.Geometry) == 0 {
			return nil, errs.New(errs.InvalidInput, "aoi", "GeoJSON Feature missing geometry")
		}
		rawGeoms = append(rawGeoms, envelope.Geometry)
	case "":
		return nil, errs.New(errs.InvalidInput, "aoi", "GeoJSON document missing a type")
	default:
		// A bare geometry object (Point, Polygon, MultiPolygon, ...).
		rawGeoms = append(rawGeoms, raw)
	}

	var polys []geom.Polygon
	for _, rg := range rawGeoms {
		ps, err := decodeGeometry(rg)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
		}
		polys = append(polys, ps...)
	}
	return polys, nil
}

// decodeGeometry decodes a single GeoJSON geometry object, supporting
// MultiPolygon in addition to what the vendored geojson.Decode handles
// natively (Point, LineString, Polygon), flattening it to individual
// polygon rings exactly as inmaputil.parseMask does for geom.MultiPolygon.
func decodeGeometry(raw json.RawMessage) ([]geom.Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Type == "MultiPolygon" {
		var mp struct {
			Coordinates [][][][2]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal(raw, &mp); err != nil {
			return nil, fmt.Errorf("decoding MultiPolygon: %w", err)
		}
		var polys []geom.Polygon
		for _, polyCoords := range mp.Coordinates {
			var rings []geom.Polygon
			var poly geom.Polygon
			for _, ring := range polyCoords {
				pts := make([]geom.Point, len(ring))
				for i, c := range ring {
					pts[i] = geom.Point{X: c[0], Y: c[1]}
				}
				poly = append(poly, pts)
			}
			rings = append(rings, poly)
			polys = append(polys, rings...)
		}
		return polys, nil
	}

	g, err := geojson.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding geometry: %w", err)
	}
	return flatten(g)
}

// flatten reduces a Polygon or MultiPolygon into its constituent
// polygons. Every other geometry type is rejected: AETHERA's AOI is
// inherently areal, so a point or line (or their multi forms) carries no
// area and is rejected here rather than downstream, and a geometry
// collection is not unpacked, even when all of its members are polygons.
func flatten(g geom.Geom) ([]geom.Polygon, error) {
	switch v := g.(type) {
	case geom.Polygon:
		return []geom.Polygon{v}, nil
	case geom.MultiPolygon:
		polys := make([]geom.Polygon, len(v))
		copy(polys, v)
		return polys, nil
	default:
		return nil, fmt.Errorf("unsupported AOI geometry type %T: only polygon and multipolygon are accepted", g)
	}
}

func (l *Loader) parseShapefile(path string) ([]geom.Polygon, error) {
	dec, err := geomshp.NewDecoder(path)
	if err != nil {
		return nil, errs.Wrap(errs.DatasetMissing, "aoi", err)
	}
	defer dec.Close()

	var polys []geom.Polygon
	for {
		g, _, more := dec.DecodeRowFields()
		if g != nil {
			ps, err := flatten(g)
			if err != nil {
				return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
			}
			polys = append(polys, ps...)
		}
		if !more {
			break
		}
	}
	if err := dec.Error(); err != nil {
		return nil, errs.Wrap(errs.DatasetCorrupt, "aoi", err)
	}
	return polys, nil
}

func (l *Loader) parseWKTFile(path string) ([]geom.Polygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.DatasetMissing, "aoi", err)
	}
	defer f.Close()
	return l.parseWKTLines(f)
}

// parseWKTLines parses a text stream of WKT geometries, one per line,
// ignoring blank lines and '#' comments.3.
func (l *Loader) parseWKTLines(r io.Reader) ([]geom.Polygon, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var polys []geom.Polygon
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps, err := parseWKT(line)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidInput, "aoi", fmt.Errorf("parsing WKT line %q: %w", line, err))
		}
		polys = append(polys, ps...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
	}
	return polys, nil
}

// reproject transforms parsed WGS84 polygons into the working CRS.
func (l *Loader) reproject(polys []geom.Polygon) ([]geom.Polygon, error) {
	src, err := crsTransformer(WGS84Proj4)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
	}
	dstDef, ok := knownCRS[l.WorkingCRS]
	if !ok {
		return nil, errs.New(errs.InvalidInput, "aoi", fmt.Sprintf("unsupported working_crs %q", l.WorkingCRS))
	}
	dst, err := crsTransformer(dstDef)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", err)
	}
	transform, err := src.NewTransform(dst)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "aoi", fmt.Errorf("building reprojection transform: %w", err))
	}

	out := make([]geom.Polygon, len(polys))
	for i, p := range polys {
		if err := op.FixOrientation(p); err != nil {
			return nil, errs.Wrap(errs.InvalidInput, "aoi", fmt.Errorf("repairing feature %d orientation: %w", i, err))
		}
		g2, err := p.Transform(transform)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidInput, "aoi", fmt.Errorf("reprojecting feature %d: %w", i, err))
		}
		out[i] = g2.(geom.Polygon)
	}
	return out, nil
}

func crsTransformer(def string) (*proj.SR, error) {
	return proj.Parse(def)
}

// encodeFeatureCollection re-serializes the parsed WGS84 polygons to a
// canonical GeoJSON FeatureCollection, used for AOI round-tripping
// and the Run record's stored AOI.
func encodeFeatureCollection(polys []geom.Polygon) ([]byte, error) {
	type geometry struct {
		Type        string          `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}
	type feature struct {
		Type       string   `json:"type"`
		Geometry   geometry `json:"geometry"`
		Properties struct{} `json:"properties"`
	}
	fc := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection"}

	for _, p := range polys {
		coords := make([][][2]float64, len(p))
		for i, ring := range p {
			rc := make([][2]float64, len(ring))
			for j, pt := range ring {
				rc[j] = [2]float64{pt.X, pt.Y}
			}
			coords[i] = rc
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Polygon", Coordinates: coords},
		})
	}
	return json.Marshal(fc)
}
