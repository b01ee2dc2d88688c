// Package protocol builds upstream queries and parses upstream responses,
// one handler per service protocol. Adding a protocol means adding a
// handler type here and a case to ForDescriptor, nothing else.
package protocol

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

// Request is the fully resolved upstream request. All four protocols are
// HTTP GETs; credentials travel separately so the URL stays loggable.
type Request struct {
	URL      string
	Username string
	Password string
	APIKey   string
}

// Result is the outcome of parsing an upstream response. Found is false
// when the response was well-formed but the extraction rule matched
// nothing, which is a valid empty result, not an error. Geometry is nil
// for protocols that return no coverage region.
type Result struct {
	Value    string
	Found    bool
	Geometry geom.T
}

// ConvertFunc reprojects a coordinate between SRIDs.
type ConvertFunc func(x, y float64, fromSRID, toSRID int) (float64, float64, error)

// Handler is the query-builder/response-parser pair for one protocol.
type Handler interface {
	Build(d *registry.ServiceDescriptor, pt geo.Point) (*Request, error)
	Parse(d *registry.ServiceDescriptor, body []byte) (*Result, error)
}

// ForDescriptor returns the handler for the descriptor's protocol.
func ForDescriptor(d *registry.ServiceDescriptor, convert ConvertFunc) (Handler, error) {
	switch d.Protocol {
	case registry.WFS:
		return &wfsHandler{convert: convert}, nil
	case registry.WMS:
		return &wmsHandler{}, nil
	case registry.REST:
		return &restHandler{}, nil
	case registry.Wiki:
		return &wikiHandler{convert: convert}, nil
	default:
		return nil, &UnsupportedProtocolError{Protocol: d.Protocol.String()}
	}
}

// setSRID stamps an SRID onto the concrete geometry types ParseGML emits.
func setSRID(g geom.T, srid int) {
	switch t := g.(type) {
	case *geom.Polygon:
		t.SetSRID(srid)
	case *geom.MultiPolygon:
		t.SetSRID(srid)
	}
}
