// Package server exposes the resolver over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geocontext/internal/cache"
	"github.com/sells-group/geocontext/internal/config"
	"github.com/sells-group/geocontext/internal/registry"
	"github.com/sells-group/geocontext/internal/resolver"
)

// Server wraps the HTTP server and its collaborators.
type Server struct {
	http     *http.Server
	resolver *resolver.Resolver
	registry *registry.Registry
	cache    *cache.SpatialCache
}

// New builds the server: router, middleware, routes.
func New(cfg config.ServerConfig, reg *registry.Registry, res *resolver.Resolver, c *cache.SpatialCache) *Server {
	s := &Server{
		resolver: res,
		registry: reg,
		cache:    c,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/value", s.handleValue)
		r.Get("/value/list", s.handleValueList)
		r.Get("/value/group/{group}", s.handleGroup)
		r.Get("/registry", s.handleRegistry)
		r.Get("/registry/{key}", s.handleRegistryKey)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the configured handler, for tests.
func (s *Server) Router() http.Handler { return s.http.Handler }

// Start blocks serving requests until Stop or a listen error.
func (s *Server) Start() error {
	zap.L().Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	zap.L().Info("shutting down server")
	return s.http.Shutdown(ctx)
}
