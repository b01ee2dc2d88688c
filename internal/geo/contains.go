package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Contains reports whether the geometry contains the coordinate. Supported
// geometry types are Polygon and MultiPolygon; anything else (points,
// lines) cannot cover a query point and reports false.
func Contains(g geom.T, x, y float64) bool {
	if g == nil {
		return false
	}
	coord := geom.Coord{x, y}
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, coord)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), coord) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// polygonContains tests the exterior ring and subtracts the holes.
func polygonContains(p *geom.Polygon, coord geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), coord, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), coord, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
