package main

import (
	"context"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/geocontext/internal/cache"
	"github.com/sells-group/geocontext/internal/db"
	"github.com/sells-group/geocontext/internal/fetcher"
	"github.com/sells-group/geocontext/internal/projection"
	"github.com/sells-group/geocontext/internal/registry"
	"github.com/sells-group/geocontext/internal/resolver"
)

// env holds the wired application components shared by the commands.
type env struct {
	Registry *registry.Registry
	Store    cache.Store
	Cache    *cache.SpatialCache
	Resolver *resolver.Resolver

	pool *pgxpool.Pool
}

// initEnv loads the registry, opens the configured cache backend, and
// assembles the resolver.
func initEnv(ctx context.Context) (*env, error) {
	reg, err := registry.LoadFile(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	store, pool, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	spatial := cache.New(store, nil)

	client := fetcher.New(fetcher.Options{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout(),
		RateLimits: hostLimiters(reg),
	})

	return &env{
		Registry: reg,
		Store:    store,
		Cache:    spatial,
		Resolver: resolver.New(reg, spatial, client),
		pool:     pool,
	}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
	if e.pool != nil {
		e.pool.Close()
	}
}

func openStore(ctx context.Context) (cache.Store, *pgxpool.Pool, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryStore(projection.Convert), nil, nil
	case "sqlite":
		store, err := cache.NewSQLite(cfg.Cache.DSN, projection.Convert)
		return store, nil, err
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Cache.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := cache.NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool, nil
	default:
		return nil, nil, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// hostLimiters builds one shared limiter per upstream host from the
// global rate settings.
func hostLimiters(reg *registry.Registry) map[string]*rate.Limiter {
	if cfg.HTTP.RatePerSecond <= 0 {
		return nil
	}
	limiters := make(map[string]*rate.Limiter)
	for _, d := range reg.All() {
		u, err := url.Parse(d.URL)
		if err != nil || u.Host == "" {
			continue
		}
		if _, ok := limiters[u.Host]; !ok {
			limiters[u.Host] = rate.NewLimiter(rate.Limit(cfg.HTTP.RatePerSecond), cfg.HTTP.RateBurst)
		}
	}
	return limiters
}
