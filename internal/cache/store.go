package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/sells-group/geocontext/internal/geo"
)

// ConvertFunc reprojects a coordinate between SRIDs. Stores need it
// because a query point must be tested in each entry geometry's SRID.
type ConvertFunc func(x, y float64, fromSRID, toSRID int) (float64, float64, error)

// Store is the persistence backend of the spatial cache. Containing
// returns the live-or-expired entries whose geometry contains the point,
// in insertion order; expiry discipline is the SpatialCache's job, not the
// store's.
type Store interface {
	Insert(ctx context.Context, e *Entry) error
	Containing(ctx context.Context, descriptorKey string, pt geo.Point) ([]*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}
