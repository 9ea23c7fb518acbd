package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// bufferPool reuses encoding buffers across /metrics scrapes to avoid
// an allocation per request under frequent polling.
var bufferPool = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1<<20 {
		return
	}
	bufferPool.Put(buf)
}

// EndpointHandler serves a Prometheus text-format scrape of a
// Gatherer, grounded on the teacher's MetricsEndpointHandler
// (pkg/metrics/endpoint.go): context-aware Gather, pooled encoding
// buffer, direct expfmt.Encoder use instead of promhttp's handler
// wrapper.
type EndpointHandler struct {
	gatherer      prometheus.Gatherer
	gatherTimeout time.Duration
}

// NewEndpointHandler builds an EndpointHandler over gatherer. A nil
// gatherer falls back to prometheus.DefaultGatherer.
func NewEndpointHandler(gatherer prometheus.Gatherer) *EndpointHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &EndpointHandler{gatherer: gatherer, gatherTimeout: 5 * time.Second}
}

func (h *EndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.gatherTimeout)
	defer cancel()

	families, err := h.gather(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to gather metrics: %v", err), http.StatusInternalServerError)
		return
	}

	buf := getBuffer()
	defer putBuffer(buf)

	encoder := expfmt.NewEncoder(buf, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode metrics: %v", err), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", string(expfmt.FmtText))
	_, _ = w.Write(buf.Bytes())
}

func (h *EndpointHandler) gather(ctx context.Context) ([]*dto.MetricFamily, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return h.gatherer.Gather()
}
