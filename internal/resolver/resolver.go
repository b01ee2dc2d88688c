// Package resolver orchestrates a context resolution: cache lookup,
// query construction, upstream fetch, response parsing, cache store.
package resolver

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/geocontext/internal/cache"
	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/projection"
	"github.com/sells-group/geocontext/internal/protocol"
	"github.com/sells-group/geocontext/internal/registry"
)

// Sender is the network collaborator: it performs the upstream call and
// reports the final URL the response came from.
type Sender interface {
	Send(ctx context.Context, req *protocol.Request) (body []byte, resolvedURL string, err error)
}

// Value is the outcome of one resolution. Found is false for a valid
// empty result (the service answered, nothing matched the extraction
// rule); that is not an error.
type Value struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	Found     bool   `json:"found"`
	SourceURI string `json:"source_uri,omitempty"`
	Cached    bool   `json:"cached"`
}

// Resolver resolves context values, consulting the spatial cache before
// touching the network. Concurrent misses for the same (service, point)
// coalesce into a single upstream fetch.
type Resolver struct {
	registry *registry.Registry
	cache    *cache.SpatialCache
	sender   Sender
	convert  protocol.ConvertFunc
	clock    cache.Clock
	flight   singleflight.Group
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the UTC wall clock, for tests.
func WithClock(clock cache.Clock) Option {
	return func(r *Resolver) { r.clock = clock }
}

// WithConvert overrides the coordinate conversion collaborator.
func WithConvert(convert protocol.ConvertFunc) Option {
	return func(r *Resolver) { r.convert = convert }
}

// New creates a Resolver.
func New(reg *registry.Registry, c *cache.SpatialCache, sender Sender, opts ...Option) *Resolver {
	r := &Resolver{
		registry: reg,
		cache:    c,
		sender:   sender,
		convert:  projection.Convert,
		clock:    cache.UTCNow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the context value of the given service at the point.
// Cache lookup strictly precedes any network activity.
func (r *Resolver) Resolve(ctx context.Context, pt geo.Point, key string) (*Value, error) {
	desc, ok := r.registry.GetByKey(key)
	if !ok {
		return nil, &UnknownServiceError{Key: key}
	}

	entry, found, err := r.cache.Lookup(ctx, key, pt)
	if err != nil {
		return nil, err
	}
	if found {
		zap.L().Debug("cache hit",
			zap.String("service", key),
			zap.String("point", pt.String()),
		)
		return valueFromEntry(desc, entry, true), nil
	}

	// Coalesce concurrent misses for the same location. The leader runs
	// detached from this caller's context so one caller's cancellation
	// cannot fail the waiters; the fetch timeout bounds the detached call.
	ch := r.flight.DoChan(flightKey(key, pt), func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx), desc, pt)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Value), nil
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "resolver: caller cancelled")
	}
}

// flightKey identifies a coalescible fetch. Coordinates are rounded so
// float noise does not defeat coalescing; semantically distinct points
// stay distinct.
func flightKey(key string, pt geo.Point) string {
	return fmt.Sprintf("%s|%.6f|%.6f|%d", key, pt.X, pt.Y, pt.SRID)
}

// fetch performs the miss path: build, send, parse, store. Only the
// single-flight leader runs it.
func (r *Resolver) fetch(ctx context.Context, desc *registry.ServiceDescriptor, pt geo.Point) (*Value, error) {
	// A waiter may have populated the cache between the caller's lookup
	// and this flight starting. The caller already counted its miss, so
	// this re-test stays out of the statistics.
	entry, found, err := r.cache.Recheck(ctx, desc.Key, pt)
	if err != nil {
		return nil, err
	}
	if found {
		return valueFromEntry(desc, entry, true), nil
	}

	handler, err := protocol.ForDescriptor(desc, r.convert)
	if err != nil {
		return nil, err
	}
	req, err := handler.Build(desc, pt)
	if err != nil {
		return nil, err
	}

	body, resolvedURL, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, &ResolutionFailedError{Key: desc.Key, URL: req.URL, Err: err}
	}

	result, err := handler.Parse(desc, body)
	if err != nil {
		zap.L().Error("upstream response unparseable",
			zap.String("service", desc.Key),
			zap.String("url", resolvedURL),
			zap.Error(err),
		)
		return nil, &ResolutionFailedError{Key: desc.Key, URL: resolvedURL, Err: err}
	}

	newEntry := &cache.Entry{
		DescriptorKey: desc.Key,
		Name:          desc.Name,
		Value:         result.Value,
		Found:         result.Found,
		Geometry:      result.Geometry,
		SourceURI:     resolvedURL,
		ExpiresAt:     r.clock().Add(desc.CacheTTL),
	}
	if result.Geometry != nil {
		if err := r.cache.Put(ctx, newEntry); err != nil {
			return nil, eris.Wrapf(err, "resolver: store entry for %q", desc.Key)
		}
	}

	return valueFromEntry(desc, newEntry, false), nil
}

func valueFromEntry(desc *registry.ServiceDescriptor, e *cache.Entry, cached bool) *Value {
	return &Value{
		Key:       desc.Key,
		Name:      desc.Name,
		Value:     e.Value,
		Found:     e.Found,
		SourceURI: e.SourceURI,
		Cached:    cached,
	}
}
