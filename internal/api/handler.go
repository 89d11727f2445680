package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlastrack/atlastrack/internal/alerts"
	"github.com/atlastrack/atlastrack/internal/compute"
	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/scraper"
	"github.com/atlastrack/atlastrack/internal/store"
)

// AlertSource lists current alerts. *alerts.Engine implements it.
type AlertSource interface {
	Active() []*alerts.Alert
}

// Config wires the handler's collaborators.
type Config struct {
	ServerName string

	// Primary and Secondary back the live-fetch endpoints. Their IDs become
	// the /api/{id} routes.
	Primary   scraper.Fetcher
	Secondary scraper.Fetcher

	// Alerts may be nil; /api/alerts then returns an empty list.
	Alerts AlertSource

	// Auth guards the live-fetch endpoints.
	Auth config.AuthConfig

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Handler is the HTTP handler for /api/* and /metrics.
type Handler struct {
	store store.Reader
	cfg   Config
	mux   *http.ServeMux
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the given snapshot reader and registers all routes.
func New(st store.Reader, cfg Config) *Handler {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{store: st, cfg: cfg, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/latest", h.latest)
	h.mux.HandleFunc("/api/distance", h.requireKey(h.distance))
	h.mux.HandleFunc("/api/test", h.test)
	h.mux.HandleFunc("/api/diagnostics", h.diagnostics)
	h.mux.HandleFunc("/api/alerts", h.alerts)
	h.mux.HandleFunc("/api/", h.notFound)
	h.mux.HandleFunc("/metrics", h.metrics)
	for _, f := range []scraper.Fetcher{cfg.Primary, cfg.Secondary} {
		if f != nil {
			h.mux.HandleFunc("/api/"+f.ID(), h.requireKey(h.fetchSource(f)))
		}
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// latest returns GET /api/latest: the cached snapshot.
func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, LatestResponse{OK: true, Cache: h.store.Snapshot()})
}

// distance returns GET /api/distance: a fresh primary fetch, validated.
// The cache is not touched.
func (h *Handler) distance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.cfg.Primary == nil {
		jsonErr(w, http.StatusServiceUnavailable, "primary source not configured")
		return
	}

	res := h.cfg.Primary.Fetch(r.Context())
	jsonResp(w, http.StatusOK, DistanceResponse{
		OK:         true,
		DistanceKm: compute.ValidDistance(res.DistanceKm),
		Timestamp:  h.now().UTC().Format(time.RFC3339),
		Error:      res.Error,
	})
}

// fetchSource returns GET /api/{id}: the raw reading of one live fetch.
func (h *Handler) fetchSource(f scraper.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jsonResp(w, http.StatusOK, f.Fetch(r.Context()))
	}
}

// test returns GET /api/test: a liveness payload.
func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, TestResponse{
		OK:        true,
		Server:    h.cfg.ServerName,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Note:      "Test endpoint",
	})
}

// diagnostics returns GET /api/diagnostics.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now := h.now()
	jsonResp(w, http.StatusOK, DiagnosticsResponse{
		Hints:       computeDiagnostics(h.store.Snapshot(), now),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	})
}

// alerts returns GET /api/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.cfg.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.cfg.Alerts.Active())
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	jsonErr(w, http.StatusNotFound, "not found: "+strings.TrimPrefix(r.URL.Path, "/api/"))
}

// requireKey enforces the API key when auth mode is apikey and a key is set.
func (h *Handler) requireKey(next http.HandlerFunc) http.HandlerFunc {
	auth := h.cfg.Auth
	key := auth.Key()
	if auth.Mode != "apikey" || key == "" {
		return next
	}
	header := auth.EffectiveHeader()
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
