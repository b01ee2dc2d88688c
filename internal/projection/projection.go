// Package projection converts coordinates between the spatial reference
// systems the service understands. Conversions are exact closed-form
// formulas; any pair outside the supported set is a ReprojectionError.
package projection

import (
	"fmt"
	"math"
)

// earthRadius is the WGS84 spherical radius used by EPSG:3857, in meters.
const earthRadius = 6378137.0

// ReprojectionError reports a conversion between an unsupported SRID pair.
type ReprojectionError struct {
	FromSRID int
	ToSRID   int
}

func (e *ReprojectionError) Error() string {
	return fmt.Sprintf("projection: unsupported conversion EPSG:%d -> EPSG:%d", e.FromSRID, e.ToSRID)
}

// Convert reprojects (x, y) from one SRID to another. Identity conversions
// always succeed; otherwise only 4326 <-> 3857 is supported.
func Convert(x, y float64, fromSRID, toSRID int) (float64, float64, error) {
	if fromSRID == toSRID {
		return x, y, nil
	}
	switch {
	case fromSRID == 4326 && toSRID == 3857:
		mx := earthRadius * x * math.Pi / 180
		my := earthRadius * math.Log(math.Tan(math.Pi/4+y*math.Pi/360))
		return mx, my, nil
	case fromSRID == 3857 && toSRID == 4326:
		lon := x / earthRadius * 180 / math.Pi
		lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
		return lon, lat, nil
	default:
		return 0, 0, &ReprojectionError{FromSRID: fromSRID, ToSRID: toSRID}
	}
}
