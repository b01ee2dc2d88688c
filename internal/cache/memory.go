package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geocontext/internal/geo"
)

// MemoryStore keeps entries in process memory, grouped by descriptor in
// insertion order. Synchronization lives in SpatialCache; the store itself
// is single-caller.
type MemoryStore struct {
	convert ConvertFunc
	entries map[string][]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(convert ConvertFunc) *MemoryStore {
	return &MemoryStore{
		convert: convert,
		entries: make(map[string][]*Entry),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, e *Entry) error {
	s.entries[e.DescriptorKey] = append(s.entries[e.DescriptorKey], e)
	return nil
}

// Containing implements Store.
func (s *MemoryStore) Containing(_ context.Context, descriptorKey string, pt geo.Point) ([]*Entry, error) {
	var out []*Entry
	for _, e := range s.entries[descriptorKey] {
		contains, err := entryContains(e, pt, s.convert)
		if err != nil {
			return nil, err
		}
		if contains {
			out = append(out, e)
		}
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	for key, entries := range s.entries {
		for i, e := range entries {
			if e.ID == id {
				s.entries[key] = append(entries[:i:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	n := 0
	for _, entries := range s.entries {
		n += len(entries)
	}
	return n, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.entries = make(map[string][]*Entry)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// entryContains tests containment in the entry geometry's SRID,
// reprojecting the query point when the systems differ.
func entryContains(e *Entry, pt geo.Point, convert ConvertFunc) (bool, error) {
	x, y := pt.X, pt.Y
	if srid := e.Geometry.SRID(); srid != 0 && srid != pt.SRID {
		var err error
		x, y, err = convert(x, y, pt.SRID, srid)
		if err != nil {
			return false, eris.Wrapf(err, "cache: reproject point for entry %s", e.ID)
		}
	}
	return geo.Contains(e.Geometry, x, y), nil
}
