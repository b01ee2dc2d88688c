package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geocontext/internal/geo"
)

const resolveConcurrency = 8

// MemberResult is the outcome of resolving a single service within a
// multi-key or group request. Failures are carried per member rather
// than aborting the batch.
type MemberResult struct {
	Key   string `json:"key"`
	Value *Value `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// GroupValue is the resolved form of a registered service group.
type GroupValue struct {
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Services []MemberResult `json:"services"`
}

// ResolveKeys resolves each service key independently against the same
// point. Results come back in input order, one per key, and a failure on
// one key never discards the values of its siblings.
func (r *Resolver) ResolveKeys(ctx context.Context, pt geo.Point, keys []string) []MemberResult {
	results := make([]MemberResult, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for i, key := range keys {
		g.Go(func() error {
			val, err := r.Resolve(gctx, pt, key)
			if err != nil {
				results[i] = MemberResult{Key: key, Error: err.Error()}
				return nil
			}
			results[i] = MemberResult{Key: key, Value: val}
			return nil
		})
	}

	// Workers never return errors, so Wait only gates completion.
	_ = g.Wait()
	return results
}

// ResolveGroup resolves every member service of a registered group.
func (r *Resolver) ResolveGroup(ctx context.Context, pt geo.Point, groupKey string) (*GroupValue, error) {
	grp, ok := r.registry.Group(groupKey)
	if !ok {
		return nil, &UnknownServiceError{Key: groupKey}
	}

	return &GroupValue{
		Key:      grp.Key,
		Name:     grp.Name,
		Services: r.ResolveKeys(ctx, pt, grp.Services),
	}, nil
}
