// Package inspector serves a read-only HTTP API over recorded interactions,
// connector metrics and process stats.
//
//	GET /interactions?connector=&limit=&offset=
//	GET /interactions/{id}
//	GET /metrics
//	GET /stats
//	GET /healthz
package inspector

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

type Handler struct {
	store     ports.InteractionStore
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	startTime time.Time
}

// New creates a Handler. store may be nil when recording is disabled; the
// interaction endpoints then return 503. A nil gatherer serves the default
// Prometheus registry.
func New(store ports.InteractionStore, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:     store,
		gatherer:  gatherer,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Mount registers the inspector routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Route("/interactions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
}

// Routes returns a standalone router with the inspector routes.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

type listResponse struct {
	Object string `json:"object"`
	Data   any    `json:"data"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "interaction recording is disabled")
		return
	}

	limit, err := intParam(r, "limit", ports.DefaultListLimit)
	if err != nil || limit < 1 || limit > MaxListLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	interactions, err := h.store.ListInteractions(r.Context(), ports.InteractionListOptions{
		Connector: r.URL.Query().Get("connector"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.logger.Error("failed to list interactions", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Object: "list",
		Data:   interactions,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "interaction recording is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	interaction, err := h.store.GetInteraction(r.Context(), id)
	if errors.Is(err, ports.ErrInteractionNotFound) {
		writeError(w, http.StatusNotFound, "interaction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get interaction", slog.String("id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get interaction")
		return
	}

	writeJSON(w, http.StatusOK, interaction)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type StatsResponse struct {
	Uptime       string      `json:"uptime"`
	GoVersion    string      `json:"go_version"`
	NumGoroutine int         `json:"num_goroutine"`
	Memory       MemoryStats `json:"memory"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, StatsResponse{
		Uptime:       time.Since(h.startTime).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": message},
	})
}
