package aoi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

// parseWKT parses a single WKT geometry literal into its constituent
// polygons. Only POLYGON and MULTIPOLYGON carry area and are accepted;
// geom/proj/encoding has no WKT geometry decoder (its wkt.go only parses
// spatial-reference definitions), so this is a small hand-rolled
// tokenizer scoped to the two geometry types AETHERA actually accepts.
func parseWKT(s string) ([]geom.Polygon, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "MULTIPOLYGON"):
		body, err := wktBody(s, "MULTIPOLYGON")
		if err != nil {
			return nil, err
		}
		return parseMultiPolygonBody(body)
	case strings.HasPrefix(upper, "POLYGON"):
		body, err := wktBody(s, "POLYGON")
		if err != nil {
			return nil, err
		}
		poly, err := parsePolygonBody(body)
		if err != nil {
			return nil, err
		}
		return []geom.Polygon{poly}, nil
	default:
		return nil, fmt.Errorf("unsupported WKT geometry type: only POLYGON and MULTIPOLYGON are accepted")
	}
}

// wktBody strips the geometry tag and its outermost parentheses,
// returning the inner coordinate text.
func wktBody(s, tag string) (string, error) {
	s = strings.TrimSpace(s[len(tag):])
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", fmt.Errorf("malformed %s: missing enclosing parentheses", tag)
	}
	return s[1 : len(s)-1], nil
}

// parsePolygonBody parses "(x y, x y, ...), (x y, ...)" -- a list of
// rings, the first the shell and the rest holes.
func parsePolygonBody(body string) (geom.Polygon, error) {
	rings, err := splitParenGroups(body)
	if err != nil {
		return nil, err
	}
	poly := make(geom.Polygon, 0, len(rings))
	for _, r := range rings {
		pts, err := parsePointList(r)
		if err != nil {
			return nil, err
		}
		poly = append(poly, pts)
	}
	return poly, nil
}

// parseMultiPolygonBody parses "((...),(...)), ((...))" -- a list of
// polygons, each itself a list of rings.
func parseMultiPolygonBody(body string) ([]geom.Polygon, error) {
	polyGroups, err := splitParenGroups(body)
	if err != nil {
		return nil, err
	}
	polys := make([]geom.Polygon, 0, len(polyGroups))
	for _, pg := range polyGroups {
		poly, err := parsePolygonBody(pg)
		if err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// splitParenGroups splits "(a),(b),(c)" into ["a", "b", "c"], respecting
// nested parentheses.
func splitParenGroups(s string) ([]string, error) {
	var groups []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in WKT")
			}
			if depth == 0 {
				groups = append(groups, s[start:i])
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in WKT")
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no coordinate groups found in WKT")
	}
	return groups, nil
}

func parsePointList(s string) ([]geom.Point, error) {
	parts := strings.Split(s, ",")
	pts := make([]geom.Point, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed WKT coordinate %q", p)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed WKT X coordinate %q: %w", fields[0], err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed WKT Y coordinate %q: %w", fields[1], err)
		}
		pts = append(pts, geom.Point{X: x, Y: y})
	}
	return pts, nil
}
