package protocol

import (
	"fmt"
	"strings"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

// wfsHandler implements the OGC WFS GetFeature protocol. The response is a
// GML feature collection carrying both the attribute value and the
// coverage polygon, so WFS results are spatially cacheable.
type wfsHandler struct {
	convert ConvertFunc
}

// Build assembles the GetFeature URL. Parameter order matches what
// upstream GeoServer deployments were qualified against; SRSNAME is only
// added for layer names without a workspace prefix, because a prefixed
// typename already encodes its namespace/SRS context and some servers
// reject the redundant parameter.
func (h *wfsHandler) Build(d *registry.ServiceDescriptor, pt geo.Point) (*Request, error) {
	x, y := pt.X, pt.Y
	if pt.SRID != d.SRID {
		var err error
		x, y, err = h.convert(x, y, pt.SRID, d.SRID)
		if err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf("SERVICE=WFS&REQUEST=GetFeature&VERSION=%s&TYPENAME=%s&OUTPUTFORMAT=GML3",
		d.ServiceVersion, d.LayerName)
	u := joinQuery(d.URL, query)
	if !strings.Contains(d.LayerName, ":") {
		u += fmt.Sprintf("&SRSNAME=%d", d.SRID)
	}
	u += "&BBOX=" + bboxString(x, y)

	return &Request{
		URL:      u,
		Username: d.Credentials.Username,
		Password: d.Credentials.Password,
		APIKey:   d.Credentials.APIKey,
	}, nil
}

// Parse extracts the attribute value and the coverage geometry. Geometry
// parsing is scoped to the layer's workspace when the typename carries a
// prefix. A response with no geometry is resolvable but not cacheable;
// when the geometry carries no SRID it is assigned the descriptor's.
func (h *wfsHandler) Parse(d *registry.ServiceDescriptor, body []byte) (*Result, error) {
	workspace := ""
	if idx := strings.Index(d.LayerName, ":"); idx >= 0 {
		workspace = d.LayerName[:idx]
	}

	g, err := geo.ParseGML(body, workspace)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	if g != nil && g.SRID() == 0 {
		setSRID(g, d.SRID)
	}

	value, found, err := extractXMLValue(body, d.ExtractionRule)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	return &Result{Value: value, Found: found, Geometry: g}, nil
}
