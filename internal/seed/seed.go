// Package seed preloads the spatial cache from local polygon shapefiles,
// so a fresh deployment can answer without hitting upstream services.
package seed

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geocontext/internal/cache"
	"github.com/sells-group/geocontext/internal/registry"
)

// Loader inserts warm entries for one registered service at a time.
type Loader struct {
	cache *cache.SpatialCache
	clock cache.Clock
}

// New creates a Loader. A nil clock defaults to UTC wall time.
func New(c *cache.SpatialCache, clock cache.Clock) *Loader {
	if clock == nil {
		clock = cache.UTCNow
	}
	return &Loader{cache: c, clock: clock}
}

// Warm reads a polygon shapefile and inserts one cache entry per feature,
// taking the context value from the named DBF attribute. Features without
// a usable polygon are skipped. Returns the number of entries inserted.
func (l *Loader) Warm(ctx context.Context, desc *registry.ServiceDescriptor, shpPath, attribute string) (int, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return 0, eris.Wrapf(err, "seed: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	attrIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, attribute) {
			attrIdx = i
			break
		}
	}
	if attrIdx < 0 {
		return 0, eris.Errorf("seed: attribute %q not found in %s", attribute, shpPath)
	}

	sourceURI := "file://" + shpPath
	var inserted, skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly, desc.SRID)
		if g == nil {
			skipped++
			continue
		}

		value := strings.TrimSpace(strings.TrimRight(reader.Attribute(attrIdx), "\x00"))

		entry := &cache.Entry{
			DescriptorKey: desc.Key,
			Name:          desc.Name,
			Value:         value,
			Found:         value != "",
			Geometry:      g,
			SourceURI:     sourceURI,
			ExpiresAt:     l.clock().Add(desc.CacheTTL),
		}
		if err := l.cache.Put(ctx, entry); err != nil {
			return inserted, eris.Wrapf(err, "seed: store entry for %q", desc.Key)
		}
		inserted++
	}

	zap.L().Info("cache warmed from shapefile",
		zap.String("service", desc.Key),
		zap.String("path", shpPath),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
	)
	return inserted, nil
}

// polygonToMultiPolygon converts a shapefile Polygon record. Each part
// becomes a single-ring polygon; malformed parts are dropped.
func polygonToMultiPolygon(p *shp.Polygon, srid int) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("seed: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("seed: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
