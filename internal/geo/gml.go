package geo

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/htmlindex"
)

// ParseGML extracts the first polygonal geometry from a GML payload (GML2
// or GML3). When workspace is non-empty, only geometry that appears under
// an element of that workspace's namespace is considered: GeoServer embeds
// the workspace name in its feature namespace URIs, and unprefixed layers
// must not pick up geometry from foreign namespaces.
//
// A nil geometry with a nil error means the document was well-formed but
// carried no polygonal geometry. The returned geometry's SRID is taken
// from the srsName attribute when present, 0 otherwise.
func ParseGML(data []byte, workspace string) (geom.T, error) {
	dec := newDecoder(data)

	var polygons []*geom.Polygon
	srid := 0
	multiDepth := -1 // stack depth at which the enclosing multi-geometry opened
	var stack []xml.Name

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "gml: read token")
		}

		switch se := tok.(type) {
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if multiDepth >= 0 && len(stack) <= multiDepth {
				// The multi-geometry closed; its polygons form the result.
				if len(polygons) > 0 {
					return finishGeometry(polygons, srid), nil
				}
				multiDepth = -1
			}

		case xml.StartElement:
			stack = append(stack, se.Name)

			switch se.Name.Local {
			case "MultiPolygon", "MultiSurface":
				if !inScope(workspace, stack) {
					continue
				}
				multiDepth = len(stack) - 1
				if s := srsAttr(se); s != 0 {
					srid = s
				}
			case "Polygon":
				if multiDepth < 0 && !inScope(workspace, stack) {
					// Standalone polygon outside the workspace namespace.
					stack = stack[:len(stack)-1]
					if err := dec.Skip(); err != nil {
						return nil, eris.Wrap(err, "gml: skip polygon")
					}
					continue
				}
				if s := srsAttr(se); s != 0 && srid == 0 {
					srid = s
				}
				poly, err := parsePolygon(dec)
				if err != nil {
					return nil, err
				}
				stack = stack[:len(stack)-1] // parsePolygon consumed the end element
				if poly == nil {
					continue
				}
				polygons = append(polygons, poly)
				if multiDepth < 0 {
					// First standalone polygon wins.
					return finishGeometry(polygons, srid), nil
				}
			}
		}
	}

	return finishGeometry(polygons, srid), nil
}

// newDecoder builds an XML decoder that tolerates non-UTF-8 charsets, the
// same way upstream federal XML feeds are decoded.
func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "gml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return dec
}

// inScope reports whether any open element's namespace carries the
// workspace name. GeoServer embeds the workspace in its feature namespace
// URIs (http://host/geoserver/<workspace>), and undeclared prefixes
// surface verbatim in Name.Space.
func inScope(workspace string, stack []xml.Name) bool {
	if workspace == "" {
		return true
	}
	for _, name := range stack {
		if strings.Contains(name.Space, workspace) {
			return true
		}
	}
	return false
}

// srsAttr parses the srsName attribute into an EPSG code, 0 when absent.
func srsAttr(se xml.StartElement) int {
	for _, attr := range se.Attr {
		if attr.Name.Local == "srsName" {
			return ParseSRSName(attr.Value)
		}
	}
	return 0
}

// ParseSRSName extracts the numeric EPSG code from any of the common
// srsName spellings: "EPSG:4326", "urn:ogc:def:crs:EPSG::4326",
// "http://www.opengis.net/def/crs/EPSG/0/4326", ".../epsg.xml#4326".
func ParseSRSName(s string) int {
	idx := strings.LastIndexAny(s, ":#/")
	if idx < 0 || idx == len(s)-1 {
		return 0
	}
	code, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return 0
	}
	return code
}

// parsePolygon consumes tokens until the Polygon element closes, collecting
// its exterior and interior rings from posList (GML3) or coordinates (GML2).
func parsePolygon(dec *xml.Decoder) (*geom.Polygon, error) {
	var rings [][]geom.Coord
	interior := false
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "gml: polygon truncated")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "interior", "innerBoundaryIs":
				interior = true
			case "exterior", "outerBoundaryIs":
				interior = false
			case "posList", "coordinates":
				coords, err := readCoords(dec, t.Name.Local)
				if err != nil {
					return nil, err
				}
				depth-- // readCoords consumed the end element
				if len(coords) < 4 {
					continue
				}
				if interior {
					rings = append(rings, coords)
				} else {
					// Exterior ring goes first.
					rings = append([][]geom.Coord{coords}, rings...)
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	if len(rings) == 0 {
		return nil, nil
	}
	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords(rings); err != nil {
		return nil, eris.Wrap(err, "gml: assemble polygon")
	}
	return poly, nil
}

// readCoords reads the character data of a posList/coordinates element and
// returns XY coordinates. posList is whitespace-separated ordinates;
// coordinates is whitespace-separated "x,y" pairs.
func readCoords(dec *xml.Decoder, local string) ([]geom.Coord, error) {
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "gml: coordinates truncated")
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if local == "coordinates" {
				return parseCoordinatePairs(text.String())
			}
			return parsePosList(text.String())
		case xml.StartElement:
			return nil, eris.Errorf("gml: unexpected element %q inside %s", t.Name.Local, local)
		}
	}
}

func parsePosList(s string) ([]geom.Coord, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, eris.Errorf("gml: posList has odd ordinate count %d", len(fields))
	}
	coords := make([]geom.Coord, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "gml: posList ordinate %q", fields[i])
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "gml: posList ordinate %q", fields[i+1])
		}
		coords = append(coords, geom.Coord{x, y})
	}
	return coords, nil
}

func parseCoordinatePairs(s string) ([]geom.Coord, error) {
	fields := strings.Fields(s)
	coords := make([]geom.Coord, 0, len(fields))
	for _, pair := range fields {
		parts := strings.Split(pair, ",")
		if len(parts) < 2 {
			return nil, eris.Errorf("gml: malformed coordinate pair %q", pair)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "gml: coordinate %q", pair)
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "gml: coordinate %q", pair)
		}
		coords = append(coords, geom.Coord{x, y})
	}
	return coords, nil
}

// finishGeometry wraps collected polygons into a single geometry and stamps
// the SRID. One polygon stays a Polygon, several become a MultiPolygon.
func finishGeometry(polygons []*geom.Polygon, srid int) geom.T {
	switch len(polygons) {
	case 0:
		return nil
	case 1:
		if srid != 0 {
			polygons[0].SetSRID(srid)
		}
		return polygons[0]
	default:
		mp := geom.NewMultiPolygon(geom.XY)
		for _, p := range polygons {
			if err := mp.Push(p); err != nil {
				continue
			}
		}
		if srid != 0 {
			mp.SetSRID(srid)
		}
		return mp
	}
}
