package protocol

import (
	"strconv"
	"strings"
)

// bboxMargin is the half-width of the query envelope around a point, in
// the units of the target SRID. Wide enough to capture the one coverage
// polygon that contains the point.
const bboxMargin = 0.001

// bboxString formats the envelope around (x, y) as "minx,miny,maxx,maxy".
func bboxString(x, y float64) string {
	parts := []string{
		formatFloat(x - bboxMargin),
		formatFloat(y - bboxMargin),
		formatFloat(x + bboxMargin),
		formatFloat(y + bboxMargin),
	}
	return strings.Join(parts, ",")
}

// bboxStringLatLon formats the same envelope with the axes swapped, for
// WMS 1.3.0 geographic CRSes where EPSG:4326 mandates lat,lon order.
func bboxStringLatLon(x, y float64) string {
	parts := []string{
		formatFloat(y - bboxMargin),
		formatFloat(x - bboxMargin),
		formatFloat(y + bboxMargin),
		formatFloat(x + bboxMargin),
	}
	return strings.Join(parts, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// joinQuery appends a query string to a base URL, using "?" when the base
// has no query string yet and "&" otherwise.
func joinQuery(base, query string) string {
	if strings.Contains(base, "?") {
		return base + "&" + query
	}
	return base + "?" + query
}
