package protocol

import (
	"fmt"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

// wikiHandler queries a MediaWiki geosearch endpoint for the nearest page
// around the point. Geosearch only speaks WGS84, so points in other
// reference systems are reprojected to 4326 first. The extraction rule is
// a regex over the JSON payload; no coverage geometry.
type wikiHandler struct {
	convert ConvertFunc
}

func (h *wikiHandler) Build(d *registry.ServiceDescriptor, pt geo.Point) (*Request, error) {
	x, y := pt.X, pt.Y
	if pt.SRID != registry.DefaultSRID {
		var err error
		x, y, err = h.convert(x, y, pt.SRID, registry.DefaultSRID)
		if err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf("action=query&list=geosearch&gscoord=%s%%7C%s&gsradius=10000&gslimit=1&format=json",
		formatFloat(y), formatFloat(x))

	return &Request{
		URL:      joinQuery(d.URL, query),
		Username: d.Credentials.Username,
		Password: d.Credentials.Password,
		APIKey:   d.Credentials.APIKey,
	}, nil
}

func (h *wikiHandler) Parse(d *registry.ServiceDescriptor, body []byte) (*Result, error) {
	return parseRegex(d.ExtractionRule, body)
}
