package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geocontext/internal/cache"
	"github.com/sells-group/geocontext/internal/config"
	"github.com/sells-group/geocontext/internal/projection"
	"github.com/sells-group/geocontext/internal/protocol"
	"github.com/sells-group/geocontext/internal/registry"
	"github.com/sells-group/geocontext/internal/resolver"
)

const featureBody = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:ns="http://svc/geoserver/ns">
  <gml:featureMember>
    <ns:water_area>
      <ns:wma_name>Berg River</ns:wma_name>
      <ns:the_geom>
        <gml:Polygon>
          <gml:exterior><gml:LinearRing>
            <gml:posList>18 -34 19 -34 19 -33 18 -33 18 -34</gml:posList>
          </gml:LinearRing></gml:exterior>
        </gml:Polygon>
      </ns:the_geom>
    </ns:water_area>
  </gml:featureMember>
</wfs:FeatureCollection>`

type stubSender struct{}

func (stubSender) Send(_ context.Context, req *protocol.Request) ([]byte, string, error) {
	if strings.Contains(req.URL, "unreachable") {
		return nil, "", fmt.Errorf("connection refused")
	}
	return []byte(featureBody), req.URL, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	reg := registry.New()
	reg.Register(&registry.ServiceDescriptor{
		Key:            "water",
		Name:           "Water Management Area",
		URL:            "http://svc/wfs",
		Credentials:    registry.Credentials{Username: "geo", Password: "hunter2"},
		Protocol:       registry.WFS,
		ExtractionRule: "wma_name",
		LayerName:      "ns:water_area",
		ServiceVersion: "2.0.0",
		SRID:           4326,
		CacheTTL:       time.Hour,
	})
	reg.Register(&registry.ServiceDescriptor{
		Key:            "broken",
		Name:           "Broken Service",
		URL:            "http://unreachable/wfs",
		Protocol:       registry.WFS,
		ExtractionRule: "wma_name",
		LayerName:      "ns:water_area",
		ServiceVersion: "2.0.0",
		SRID:           4326,
		CacheTTL:       time.Hour,
	})
	reg.RegisterGroup(&registry.Group{
		Key:      "hydrology",
		Name:     "Hydrology",
		Services: []string{"water"},
	})

	c := cache.New(cache.NewMemoryStore(projection.Convert), nil)
	res := resolver.New(reg, c, stubSender{})

	return New(config.ServerConfig{Port: 0, AllowedOrigins: []string{"*"}}, reg, res, c)
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestValue(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/value?key=water&x=18.5&y=-33.5")
	require.Equal(t, http.StatusOK, rec.Code)

	var val resolver.Value
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &val))
	assert.Equal(t, "water", val.Key)
	assert.Equal(t, "Berg River", val.Value)
	assert.True(t, val.Found)
	assert.False(t, val.Cached)

	// Second call is served from the cache.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/value?key=water&x=18.5&y=-33.5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &val))
	assert.True(t, val.Cached)
}

func TestValue_BadRequests(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/value?x=18.5&y=-33.5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/value?key=water&x=abc&y=-33.5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/value?key=water&x=18.5&y=-33.5&srid=oops")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValue_UnknownServiceIs404(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/api/v1/value?key=nope&x=18.5&y=-33.5")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValue_UpstreamFailureIs502(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/api/v1/value?key=broken&x=18.5&y=-33.5")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestValueList(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/value/list?keys=water,broken&x=18.5&y=-33.5")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []resolver.MemberResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "water", results[0].Key)
	require.NotNil(t, results[0].Value)
	assert.Equal(t, "Berg River", results[0].Value.Value)
	assert.Equal(t, "broken", results[1].Key)
	assert.NotEmpty(t, results[1].Error)
}

func TestGroup(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/value/group/hydrology?x=18.5&y=-33.5")
	require.Equal(t, http.StatusOK, rec.Code)

	var grp resolver.GroupValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grp))
	assert.Equal(t, "hydrology", grp.Key)
	require.Len(t, grp.Services, 1)
	require.NotNil(t, grp.Services[0].Value)
	assert.Equal(t, "Berg River", grp.Services[0].Value.Value)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/value/group/missing?x=18.5&y=-33.5")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistry(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/registry")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"water"`)
	assert.Contains(t, body, `"hydrology"`)
	// Credentials never leave the process.
	assert.NotContains(t, body, "hunter2")
	assert.NotContains(t, body, "password")
}

func TestRegistryKey(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/registry/water")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum serviceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "Water Management Area", sum.Name)
	assert.Equal(t, "WFS", sum.Protocol)
	assert.EqualValues(t, 3600, sum.TTLSeconds)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/registry/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheStatsAndClear(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/value?key=water&x=18.5&y=-33.5")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/cache")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cache/stats")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Entries)
}
