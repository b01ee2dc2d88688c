package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geocontext/internal/geo"
)

// SpatialCache answers "is this point already covered by a live entry?".
// Lookup and Put are serialized so a lookup never observes a partially
// written entry and delete-on-expiry cannot race an insert.
//
// Coverage regions for one descriptor are assumed non-overlapping (an
// upstream-data assumption, not enforced here), so at most one entry can
// contain a given point: the first containing entry decides the outcome
// and no further entries are examined.
type SpatialCache struct {
	store Store
	clock Clock

	mu      sync.Mutex
	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
}

// Stats holds cache performance counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Expired int64 `json:"expired"`
}

// New creates a SpatialCache over the given store. A nil clock defaults to
// UTC wall time.
func New(store Store, clock Clock) *SpatialCache {
	if clock == nil {
		clock = UTCNow
	}
	return &SpatialCache{store: store, clock: clock}
}

// Lookup returns the live entry covering the point, if any. An expired
// containing entry is deleted on observation and reported as a miss.
func (c *SpatialCache) Lookup(ctx context.Context, descriptorKey string, pt geo.Point) (*Entry, bool, error) {
	return c.lookup(ctx, descriptorKey, pt, true)
}

// Recheck is Lookup without counter updates. A resolution that already
// recorded its miss uses it to re-test the cache before fetching, so one
// miss is not counted twice and a waiter-populated entry does not inflate
// the hit count.
func (c *SpatialCache) Recheck(ctx context.Context, descriptorKey string, pt geo.Point) (*Entry, bool, error) {
	return c.lookup(ctx, descriptorKey, pt, false)
}

func (c *SpatialCache) lookup(ctx context.Context, descriptorKey string, pt geo.Point, count bool) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Containing(ctx, descriptorKey, pt)
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: lookup")
	}
	if len(entries) == 0 {
		if count {
			c.misses.Add(1)
		}
		return nil, false, nil
	}

	entry := entries[0]
	if entry.Expired(c.clock()) {
		if err := c.store.Delete(ctx, entry.ID); err != nil {
			return nil, false, eris.Wrap(err, "cache: delete expired")
		}
		if count {
			c.expired.Add(1)
			c.misses.Add(1)
		}
		zap.L().Debug("cache entry expired",
			zap.String("descriptor", descriptorKey),
			zap.String("entry", entry.ID.String()),
		)
		return nil, false, nil
	}

	if count {
		c.hits.Add(1)
	}
	return entry, true, nil
}

// Put inserts a new entry. Entries without a coverage geometry are not
// cacheable by containment and are rejected.
func (c *SpatialCache) Put(ctx context.Context, e *Entry) error {
	if e.Geometry == nil {
		return eris.New("cache: entry has no coverage geometry")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Insert(ctx, e); err != nil {
		return eris.Wrap(err, "cache: put")
	}
	return nil
}

// Stats returns current counters plus the store's entry count.
func (c *SpatialCache) Stats(ctx context.Context) (Stats, error) {
	n, err := c.store.Count(ctx)
	if err != nil {
		return Stats{}, eris.Wrap(err, "cache: count")
	}
	return Stats{
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Expired: c.expired.Load(),
	}, nil
}

// Clear drops every entry.
func (c *SpatialCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clear(ctx)
}
