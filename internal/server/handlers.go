package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedcache/internal/cache"
	apperrors "feedcache/internal/common/errors"
	"feedcache/internal/common/logging"
	"feedcache/internal/feed"
)

// Handlers bundles the HTTP handlers with their collaborators.
type Handlers struct {
	cache    *cache.TieredCache
	feed     *feed.Service
	gatherer prometheus.Gatherer
	logger   logging.Logger
}

// NewHandlers creates the handler set. gatherer may be nil to disable the
// /metrics endpoint.
func NewHandlers(tiered *cache.TieredCache, feedSvc *feed.Service, gatherer prometheus.Gatherer, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		cache:    tiered,
		feed:     feedSvc,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Router builds the route table.
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/feed", h.GetFeed).Methods("GET")
	api.HandleFunc("/feed/invalidate", h.InvalidateFeed).Methods("POST")
	api.HandleFunc("/cache/stats", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache/stats/reset", h.ResetCacheStats).Methods("POST")
	api.HandleFunc("/cache/invalidate", h.InvalidateCache).Methods("POST")

	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	return router
}

// HealthCheck reports liveness. A remote cache outage degrades the report
// but never fails it; the service keeps serving from the local tier.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	remote := "up"
	if err := h.cache.Ping(r.Context()); err != nil {
		status = "degraded"
		remote = "down"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"remote":  remote,
		"breaker": h.cache.BreakerStats().State,
	})
}

// GetFeed serves one page of the global feed through the cache.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)

	page, err := h.feed.GetPage(r.Context(), skip, limit)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to load feed page", err,
			logging.Int("skip", skip), logging.Int("limit", limit))
		http.Error(w, "Failed to load feed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skip":  skip,
		"limit": limit,
		"data":  page,
	})
}

// InvalidateFeed drops every cached feed page. InvalidateAll cannot fail:
// the prefix is a non-empty constant and operational failures never surface,
// so a partial remote invalidation still answers 200 with the local count.
func (h *Handlers) InvalidateFeed(w http.ResponseWriter, r *http.Request) {
	removed, _ := h.feed.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// GetCacheStats returns the cache counters and circuit breaker view.
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	breaker := h.cache.BreakerStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cache": h.cache.Stats(),
		"breaker": map[string]interface{}{
			"state":    breaker.State,
			"failures": breaker.Failures,
			"cooldown": breaker.Cooldown.String(),
		},
	})
}

// ResetCacheStats zeroes the cache counters.
func (h *Handlers) ResetCacheStats(w http.ResponseWriter, r *http.Request) {
	h.cache.ResetStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "reset"})
}

// InvalidateCache removes every cache entry under the given prefix.
func (h *Handlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	removed, err := h.cache.InvalidatePrefix(r.Context(), prefix)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to invalidate cache", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prefix":  prefix,
		"removed": removed,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
