// Package httpapi implements the ingestion boundary described in spec
// §6: a thin HTTP surface that maps Offer outcomes to status codes and
// exposes health, Prometheus, and statistics endpoints. None of the
// dispatch engine's logic lives here — every handler delegates
// straight to an *engine.Engine.
//
// Grounded on the teacher's internal/api/router.go: gorilla/mux router
// construction and global middleware via router.Use, with a
// hand-rolled Prometheus scrape handler (metrics.EndpointHandler)
// mounted alongside the application routes.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mihika12345b/log-distributor/internal/engine"
	"github.com/mihika12345b/log-distributor/internal/intake"
	"github.com/mihika12345b/log-distributor/pkg/logger"
	"github.com/mihika12345b/log-distributor/pkg/metrics"
)

// maxPacketBodyBytes bounds how much of a request body NewRouter will
// read before treating the packet as opaque bytes (spec §3: payload is
// opaque to the core; this is purely a transport-level safety limit).
const maxPacketBodyBytes = 4 << 20

// NewRouter builds the ingestion HTTP surface around eng. promGatherer
// is the registry metrics were registered against (nil for the global
// default registry). log may be nil, in which case slog.Default() is
// used.
func NewRouter(eng *engine.Engine, promGatherer prometheus.Gatherer, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	r := mux.NewRouter()
	r.Use(logger.Middleware(log))

	r.HandleFunc("/v1/packets", submitHandler(eng)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthzHandler(eng)).Methods(http.MethodGet)
	r.HandleFunc("/stats", statsHandler(eng)).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.NewEndpointHandler(promGatherer))

	return r
}

// submitHandler implements "Submit: offer(packet) -> {accepted |
// overloaded | closed}" (spec §6), mapping Accepted->202,
// Overloaded->503 (retryable), Closed->503.
func submitHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPacketBodyBytes))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		packet, result := eng.Offer(body)

		switch result {
		case intake.Accepted:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": packet.ID, "status": "accepted"})
		case intake.Overloaded:
			w.Header().Set("Retry-After", "1")
			http.Error(w, "intake buffer full", http.StatusServiceUnavailable)
		case intake.Closed:
			http.Error(w, "distributor shutting down", http.StatusServiceUnavailable)
		}
	}
}

func healthzHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func statsHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(eng.Snapshot())
	}
}
