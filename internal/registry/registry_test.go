package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
services:
  - key: water_management_area
    name: Water Management Area
    url: http://maps.kartoza.com/geoserver/wfs
    query_type: WFS
    result_regex: wma_name
    layer_typename: kartoza:water_management_areas
    service_version: 1.0.0
  - key: elevation
    name: Elevation
    url: http://svc.example.com/wms
    query_type: WMS
    result_regex: GRAY_INDEX
    layer_typename: dem
    service_version: 1.1.1
    srid: 3857
    time_to_live: 3600
  - key: quickosm
    name: OSM Lookup
    url: http://osm.example.com/point
    query_type: REST
    result_regex: 'name="([^"]+)"'
groups:
  - key: hydrology
    name: Hydrology
    services: [water_management_area, elevation]
`

func TestLoad(t *testing.T) {
	r, err := Load([]byte(sampleYAML))
	require.NoError(t, err)

	d, ok := r.GetByKey("water_management_area")
	require.True(t, ok)
	assert.Equal(t, WFS, d.Protocol)
	assert.Equal(t, "kartoza:water_management_areas", d.LayerName)
	// Defaults applied.
	assert.Equal(t, DefaultSRID, d.SRID)
	assert.Equal(t, DefaultTTL, d.CacheTTL)

	d, ok = r.GetByKey("elevation")
	require.True(t, ok)
	assert.Equal(t, 3857, d.SRID)
	assert.Equal(t, time.Hour, d.CacheTTL)

	_, ok = r.GetByKey("nope")
	assert.False(t, ok)

	g, ok := r.Group("hydrology")
	require.True(t, ok)
	assert.Equal(t, []string{"water_management_area", "elevation"}, g.Services)
}

func TestLoad_Ordering(t *testing.T) {
	r, err := Load([]byte(sampleYAML))
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "water_management_area", all[0].Key)
	assert.Equal(t, "elevation", all[1].Key)
	assert.Equal(t, "quickosm", all[2].Key)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing key", "services:\n  - url: http://x\n    query_type: WFS\n"},
		{"missing url", "services:\n  - key: a\n    query_type: WFS\n"},
		{"bad protocol", "services:\n  - key: a\n    url: http://x\n    query_type: GOPHER\n"},
		{"unknown group member", "groups:\n  - key: g\n    services: [missing]\n"},
		{"invalid yaml", "services: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("Wikipedia")
	require.NoError(t, err)
	assert.Equal(t, Wiki, p)
	assert.Equal(t, "Wikipedia", p.String())

	p, err = ParseProtocol("WIKI")
	require.NoError(t, err)
	assert.Equal(t, Wiki, p)

	_, err = ParseProtocol("WCS")
	assert.Error(t, err)
}
