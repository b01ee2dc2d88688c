// Package geo holds the shared geometry primitives: the query point type,
// point-in-geometry containment, and GML geometry decoding.
package geo

import "fmt"

// Point is a coordinate pair with its spatial reference system. Value type,
// no identity.
type Point struct {
	X    float64
	Y    float64
	SRID int
}

// String formats the point for logs and cache keys.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%g %g) EPSG:%d", p.X, p.Y, p.SRID)
}
