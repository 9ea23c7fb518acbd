package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HTTPAdapter is a concrete Transport Adapter backed by net/http. It
// applies a per-target outbound rate limit (golang.org/x/time/rate) so
// a single misbehaving target cannot monopolize connection pool
// capacity; this is demo infrastructure, not part of the dispatch
// engine's contract.
type HTTPAdapter struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	// RatePerSecond bounds outbound requests per target. Zero disables
	// limiting.
	RatePerSecond float64
	BurstSize     int
}

// NewHTTPAdapter builds an HTTPAdapter with connection pooling settings
// suited to many small, latency-sensitive sends.
func NewHTTPAdapter(ratePerSecond float64, burst int) *HTTPAdapter {
	return &HTTPAdapter{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		limiters:      make(map[string]*rate.Limiter),
		RatePerSecond: ratePerSecond,
		BurstSize:     burst,
	}
}

func (a *HTTPAdapter) limiterFor(url string) *rate.Limiter {
	if a.RatePerSecond <= 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[url]
	if !ok {
		l = rate.NewLimiter(rate.Limit(a.RatePerSecond), a.BurstSize)
		a.limiters[url] = l
	}
	return l
}

// Send implements Adapter.Send.
func (a *HTTPAdapter) Send(ctx context.Context, url string, body []byte, timeout time.Duration) (Outcome, error) {
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if l := a.limiterFor(url); l != nil {
		if err := l.Wait(sendCtx); err != nil {
			return OutcomeRetriable, err
		}
	}

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return OutcomePermanent, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		if sendCtx.Err() != nil {
			return OutcomeRetriable, fmt.Errorf("%s: %w", ClassifyNetworkError(sendCtx.Err()), sendCtx.Err())
		}
		return OutcomeRetriable, fmt.Errorf("%s: %w", ClassifyNetworkError(err), err)
	}
	defer resp.Body.Close()

	return ClassifyStatus(resp.StatusCode), nil
}

// Probe implements Adapter.Probe.
func (a *HTTPAdapter) Probe(ctx context.Context, url string, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
