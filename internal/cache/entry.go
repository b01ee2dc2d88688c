// Package cache is the spatial cache: values keyed by the coverage
// geometry they are valid for, with UTC expiry and delete-on-observe.
package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
)

// Entry is one cached resolution: the extracted value, the region it
// covers, and when it stops being trustworthy. Entries without a geometry
// are degenerate (nothing can ever look them up by containment) and are
// rejected by Put; protocols that return no coverage region simply do not
// cache.
type Entry struct {
	ID            uuid.UUID
	DescriptorKey string
	Name          string
	Value         string
	Found         bool // false when the upstream response matched no value
	Geometry      geom.T
	SourceURI     string // resolved upstream URL, kept for provenance
	ExpiresAt     time.Time
}

// Expired reports whether the entry is past its lifetime at the given
// instant. Expiry timestamps are UTC; comparison is instant-based either way.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Clock supplies the current time. Production uses UTCNow; tests freeze it.
type Clock func() time.Time

// UTCNow is the production clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}
