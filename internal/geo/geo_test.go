package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
	if err != nil {
		panic(err)
	}
	return poly
}

func TestContains_Polygon(t *testing.T) {
	poly := square(0, 0, 10, 10)

	assert.True(t, Contains(poly, 5, 5))
	assert.False(t, Contains(poly, 15, 5))
	assert.False(t, Contains(poly, -1, -1))
}

func TestContains_PolygonWithHole(t *testing.T) {
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	})
	require.NoError(t, err)

	assert.True(t, Contains(poly, 2, 2))
	assert.False(t, Contains(poly, 5, 5)) // inside the hole
}

func TestContains_MultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 1, 1)))
	require.NoError(t, mp.Push(square(10, 10, 11, 11)))

	assert.True(t, Contains(mp, 0.5, 0.5))
	assert.True(t, Contains(mp, 10.5, 10.5))
	assert.False(t, Contains(mp, 5, 5))
}

func TestContains_NonAreal(t *testing.T) {
	assert.False(t, Contains(nil, 0, 0))
	assert.False(t, Contains(geom.NewPointFlat(geom.XY, []float64{1, 1}), 1, 1))
}

const gml3Response = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:kartoza="http://maps.example.com/geoserver/kartoza">
  <gml:featureMember>
    <kartoza:water_management_areas>
      <kartoza:wma_name>Limpopo</kartoza:wma_name>
      <kartoza:the_geom>
        <gml:Polygon srsName="urn:ogc:def:crs:EPSG::4326">
          <gml:exterior>
            <gml:LinearRing>
              <gml:posList>28.0 -24.0 30.0 -24.0 30.0 -22.0 28.0 -22.0 28.0 -24.0</gml:posList>
            </gml:LinearRing>
          </gml:exterior>
        </gml:Polygon>
      </kartoza:the_geom>
    </kartoza:water_management_areas>
  </gml:featureMember>
</wfs:FeatureCollection>`

func TestParseGML_Polygon(t *testing.T) {
	g, err := ParseGML([]byte(gml3Response), "kartoza")
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, 4326, g.SRID())
	assert.True(t, Contains(g, 29.0, -23.0))
	assert.False(t, Contains(g, 27.0, -23.0))
}

func TestParseGML_WorkspaceScoping(t *testing.T) {
	// Geometry lives under the kartoza namespace; a foreign workspace must
	// not claim it.
	g, err := ParseGML([]byte(gml3Response), "otherws")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestParseGML_GML2Coordinates(t *testing.T) {
	payload := `<FeatureCollection xmlns:gml="http://www.opengis.net/gml">
	  <gml:Polygon>
	    <gml:outerBoundaryIs>
	      <gml:LinearRing>
	        <gml:coordinates>0,0 4,0 4,4 0,4 0,0</gml:coordinates>
	      </gml:LinearRing>
	    </gml:outerBoundaryIs>
	  </gml:Polygon>
	</FeatureCollection>`

	g, err := ParseGML([]byte(payload), "")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, Contains(g, 2, 2))
	assert.Equal(t, 0, g.SRID()) // no srsName on the payload
}

func TestParseGML_MultiSurface(t *testing.T) {
	payload := `<FeatureCollection xmlns:gml="http://www.opengis.net/gml">
	  <gml:MultiSurface srsName="EPSG:3857">
	    <gml:surfaceMember>
	      <gml:Polygon><gml:exterior><gml:LinearRing>
	        <gml:posList>0 0 1 0 1 1 0 1 0 0</gml:posList>
	      </gml:LinearRing></gml:exterior></gml:Polygon>
	    </gml:surfaceMember>
	    <gml:surfaceMember>
	      <gml:Polygon><gml:exterior><gml:LinearRing>
	        <gml:posList>10 10 11 10 11 11 10 11 10 10</gml:posList>
	      </gml:LinearRing></gml:exterior></gml:Polygon>
	    </gml:surfaceMember>
	  </gml:MultiSurface>
	</FeatureCollection>`

	g, err := ParseGML([]byte(payload), "")
	require.NoError(t, err)
	require.NotNil(t, g)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 3857, g.SRID())
	assert.True(t, Contains(g, 10.5, 10.5))
}

func TestParseGML_NoGeometry(t *testing.T) {
	g, err := ParseGML([]byte(`<resp><value>42</value></resp>`), "")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestParseGML_Truncated(t *testing.T) {
	_, err := ParseGML([]byte(`<gml:Polygon xmlns:gml="http://www.opengis.net/gml"><gml:exterior>`), "")
	assert.Error(t, err)
}

func TestParseSRSName(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"EPSG:4326", 4326},
		{"urn:ogc:def:crs:EPSG::3857", 3857},
		{"http://www.opengis.net/gml/srs/epsg.xml#32735", 32735},
		{"http://www.opengis.net/def/crs/EPSG/0/4326", 4326},
		{"not-a-srs", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSRSName(tt.in), tt.in)
	}
}
