package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/registry"
)

// restHandler queries plain HTTP endpoints. The endpoint URL may embed
// {x}, {y} and {srid} placeholders; without placeholders the coordinates
// are appended as lon/lat parameters. The extraction rule is a regex whose
// first capture group is the value. No coverage geometry.
type restHandler struct{}

func (h *restHandler) Build(d *registry.ServiceDescriptor, pt geo.Point) (*Request, error) {
	u := d.URL
	if strings.Contains(u, "{x}") || strings.Contains(u, "{y}") {
		r := strings.NewReplacer(
			"{x}", formatFloat(pt.X),
			"{y}", formatFloat(pt.Y),
			"{srid}", strconv.Itoa(pt.SRID),
		)
		u = r.Replace(u)
	} else {
		u = joinQuery(u, fmt.Sprintf("lon=%s&lat=%s", formatFloat(pt.X), formatFloat(pt.Y)))
	}

	return &Request{
		URL:      u,
		Username: d.Credentials.Username,
		Password: d.Credentials.Password,
		APIKey:   d.Credentials.APIKey,
	}, nil
}

func (h *restHandler) Parse(d *registry.ServiceDescriptor, body []byte) (*Result, error) {
	return parseRegex(d.ExtractionRule, body)
}

// parseRegex applies the descriptor's extraction regex to a raw payload.
// The first capture group is the value; without groups the whole match is
// used. No match is a valid empty result.
func parseRegex(rule string, body []byte) (*Result, error) {
	re, err := regexp.Compile(rule)
	if err != nil {
		return nil, eris.Wrapf(err, "protocol: invalid extraction regex %q", rule)
	}
	m := re.FindSubmatch(body)
	if m == nil {
		return &Result{}, nil
	}
	value := m[0]
	if len(m) > 1 {
		value = m[1]
	}
	return &Result{Value: string(value), Found: true}, nil
}
