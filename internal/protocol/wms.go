package protocol

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

// wmsHandler implements WMS GetFeatureInfo: a fixed 101x101 pixel window
// around the point, probed at the center pixel (50,50). WMS returns the
// value at a single pixel, not a coverage region, so results carry no
// geometry and are never spatially cacheable.
type wmsHandler struct{}

func (h *wmsHandler) Build(d *registry.ServiceDescriptor, pt geo.Point) (*Request, error) {
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", d.ServiceVersion)
	params.Set("REQUEST", "GetFeatureInfo")
	params.Set("LAYERS", d.LayerName)
	params.Set("QUERY_LAYERS", d.LayerName)
	params.Set("STYLES", "")
	params.Set("WIDTH", "101")
	params.Set("HEIGHT", "101")
	params.Set("INFO_FORMAT", "application/vnd.ogc.gml")

	// 1.3.0 renamed the SRS parameter and the pixel coordinates, and it
	// follows the CRS axis order: EPSG:4326 becomes lat,lon in the BBOX.
	if strings.HasPrefix(d.ServiceVersion, "1.3") {
		if geographicSRID(pt.SRID) {
			params.Set("BBOX", bboxStringLatLon(pt.X, pt.Y))
		} else {
			params.Set("BBOX", bboxString(pt.X, pt.Y))
		}
		params.Set("CRS", fmt.Sprintf("EPSG:%d", pt.SRID))
		params.Set("I", "50")
		params.Set("J", "50")
	} else {
		params.Set("BBOX", bboxString(pt.X, pt.Y))
		params.Set("SRS", fmt.Sprintf("EPSG:%d", pt.SRID))
		params.Set("X", "50")
		params.Set("Y", "50")
	}

	return &Request{
		URL:      joinQuery(d.URL, params.Encode()),
		Username: d.Credentials.Username,
		Password: d.Credentials.Password,
		APIKey:   d.Credentials.APIKey,
	}, nil
}

// geographicSRID reports whether the reference system is lat,lon-ordered
// under WMS 1.3.0 axis rules. EPSG:4326 is the only geographic system the
// projection layer produces.
func geographicSRID(srid int) bool {
	return srid == 4326
}

func (h *wmsHandler) Parse(d *registry.ServiceDescriptor, body []byte) (*Result, error) {
	value, found, err := extractXMLValue(body, d.ExtractionRule)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	return &Result{Value: value, Found: found}, nil
}
