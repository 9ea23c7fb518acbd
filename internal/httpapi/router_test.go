package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihika12345b/log-distributor/internal/dispatcher"
	"github.com/mihika12345b/log-distributor/internal/engine"
	"github.com/mihika12345b/log-distributor/internal/healthmonitor"
	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/transport"
)

type alwaysOK struct{}

func (alwaysOK) Send(context.Context, string, []byte, time.Duration) (transport.Outcome, error) {
	return transport.OutcomeSuccess, nil
}
func (alwaysOK) Probe(context.Context, string, time.Duration) bool { return true }

func newTestEngine(t *testing.T, capacity int) *engine.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	eng, err := engine.New(engine.Config{
		Targets:  []registry.TargetConfig{{Name: "a", URL: "a", Weight: 1}},
		Workers:  2,
		Capacity: capacity,
		Dispatcher: dispatcher.Config{
			MaxAttempts: 1, BaseDelay: time.Millisecond, SendTimeout: time.Second,
		},
		Health: healthmonitor.Config{Interval: time.Hour, ProbeTimeout: time.Second},
	}, alwaysOK{}, reg, nil)
	require.NoError(t, err)
	return eng
}

func TestSubmitHandler_AcceptsAndReturns202(t *testing.T) {
	eng := newTestEngine(t, 10)
	router := NewRouter(eng, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/packets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSubmitHandler_RejectsWhenOverloaded(t *testing.T) {
	eng := newTestEngine(t, 1)

	router := NewRouter(eng, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = ctx

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/packets", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusServiceUnavailable {
			return
		}
	}
	t.Fatal("expected at least one 503 overloaded response from a capacity-1 buffer")
}

func TestHealthzHandler(t *testing.T) {
	eng := newTestEngine(t, 10)
	router := NewRouter(eng, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsHandler_ReturnsJSON(t *testing.T) {
	eng := newTestEngine(t, 10)
	router := NewRouter(eng, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	eng := newTestEngine(t, 10)
	router := NewRouter(eng, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
