package aoi

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const squareGeoJSON = `{
  "type": "Feature",
  "geometry": {
    "type": "Polygon",
    "coordinates": [[[12.0,41.0],[12.1,41.0],[12.1,41.1],[12.0,41.1],[12.0,41.0]]]
  }
}`

func TestLoadGeoJSONFeature(t *testing.T) {
	l := NewLoader("")
	a, err := l.Load([]byte(squareGeoJSON), "")
	require.NoError(t, err)
	require.Equal(t, "EPSG:3035", a.WorkingCRS)
	require.Greater(t, a.AreaM2, 0.0)
	require.Len(t, a.Features, 1)

	var fc map[string]interface{}
	require.NoError(t, json.Unmarshal(a.WGS84, &fc))
	require.Equal(t, "FeatureCollection", fc["type"])
}

func TestLoadGeoJSONFeatureCollectionWithMultiPolygon(t *testing.T) {
	raw := `{
      "type": "FeatureCollection",
      "features": [{
        "type": "Feature",
        "geometry": {
          "type": "MultiPolygon",
          "coordinates": [[[[12.0,41.0],[12.1,41.0],[12.1,41.1],[12.0,41.1],[12.0,41.0]]]]
        }
      }]
    }`
	l := NewLoader("EPSG:3035")
	a, err := l.Load([]byte(raw), "")
	require.NoError(t, err)
	require.Len(t, a.Features, 1)
}

func TestLoadRejectsEmptyInput(t *testing.T) {
	l := NewLoader("")
	_, err := l.Load([]byte(""), "")
	require.Error(t, err)
}

func TestLoadWKTPolygon(t *testing.T) {
	l := NewLoader("")
	wkt := "POLYGON((12.0 41.0, 12.1 41.0, 12.1 41.1, 12.0 41.1, 12.0 41.0))"
	a, err := l.Load([]byte(wkt), "")
	require.NoError(t, err)
	require.Greater(t, a.AreaM2, 0.0)
}

func TestLoadWKTFileWithComments(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\nPOLYGON((12.0 41.0, 12.1 41.0, 12.1 41.1, 12.0 41.1, 12.0 41.0))\n\n"
	path := dir + "/aoi.wkt"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := NewLoader("")
	a, err := l.Load(nil, path)
	require.NoError(t, err)
	require.Len(t, a.Features, 1)
}

func TestLoadRejectsZeroAreaPolygon(t *testing.T) {
	l := NewLoader("")
	wkt := "POLYGON((12.0 41.0, 12.0 41.0, 12.0 41.0))"
	_, err := l.Load([]byte(wkt), "")
	require.Error(t, err)
}
