package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/geocontext/internal/geo"
	"github.com/sells-group/geocontext/internal/projection"
	"github.com/sells-group/geocontext/internal/protocol"
	"github.com/sells-group/geocontext/internal/registry"
	"github.com/sells-group/geocontext/internal/resolver"
)

// serviceSummary is the public shape of a registered service. Credentials
// never leave the process.
type serviceSummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Protocol    string `json:"protocol"`
	Layer       string `json:"layer,omitempty"`
	SRID        int    `json:"srid"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

type groupSummary struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
}

func summarize(d *registry.ServiceDescriptor) serviceSummary {
	return serviceSummary{
		Key:         d.Key,
		Name:        d.Name,
		Description: d.Description,
		Protocol:    d.Protocol.String(),
		Layer:       d.LayerName,
		SRID:        d.SRID,
		TTLSeconds:  int64(d.CacheTTL.Seconds()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeResolveError maps the resolver error taxonomy onto HTTP statuses.
func writeResolveError(w http.ResponseWriter, err error) {
	var (
		unknown     *resolver.UnknownServiceError
		unsupported *protocol.UnsupportedProtocolError
		reproj      *projection.ReprojectionError
		failed      *resolver.ResolutionFailedError
	)
	switch {
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unsupported), errors.As(err, &reproj):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &failed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pointFromQuery reads x, y, and optional srid query parameters.
func pointFromQuery(r *http.Request) (geo.Point, error) {
	q := r.URL.Query()

	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return geo.Point{}, errors.New("query parameter x must be a number")
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return geo.Point{}, errors.New("query parameter y must be a number")
	}

	srid := registry.DefaultSRID
	if raw := q.Get("srid"); raw != "" {
		srid, err = strconv.Atoi(raw)
		if err != nil {
			return geo.Point{}, errors.New("query parameter srid must be an integer")
		}
	}

	return geo.Point{X: x, Y: y, SRID: srid}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "query parameter key is required")
		return
	}
	pt, err := pointFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	val, err := s.resolver.Resolve(r.Context(), pt, key)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, val)
}

func (s *Server) handleValueList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("keys")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "query parameter keys is required")
		return
	}
	pt, err := pointFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	keys := strings.Split(raw, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}

	writeJSON(w, http.StatusOK, s.resolver.ResolveKeys(r.Context(), pt, keys))
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	pt, err := pointFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grp, err := s.resolver.ResolveGroup(r.Context(), pt, chi.URLParam(r, "group"))
	if err != nil {
		writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grp)
}

func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	descs := s.registry.All()
	services := make([]serviceSummary, 0, len(descs))
	for _, d := range descs {
		services = append(services, summarize(d))
	}

	grps := s.registry.Groups()
	groups := make([]groupSummary, 0, len(grps))
	for _, g := range grps {
		groups = append(groups, groupSummary{Key: g.Key, Name: g.Name, Services: g.Services})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"services": services,
		"groups":   groups,
	})
}

func (s *Server) handleRegistryKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	d, ok := s.registry.GetByKey(key)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service "+key)
		return
	}
	writeJSON(w, http.StatusOK, summarize(d))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
