// Package transport defines the Transport Adapter boundary (spec §6):
// the external collaborator that actually sends a packet to a target
// URL and probes target liveness. The dispatch engine only depends on
// the Adapter interface; HTTPAdapter is a concrete, runnable
// implementation wired up by cmd/distributor.
package transport

import (
	"context"
	"time"
)

// Outcome classifies the result of one Send attempt, as the Dispatcher
// needs it to decide whether to retry (spec §4.3).
type Outcome int

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess Outcome = iota
	// OutcomeRetriable covers 408, 429, 5xx, and network/timeout errors.
	OutcomeRetriable
	// OutcomePermanent covers 4xx responses other than 408/429.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetriable:
		return "retriable"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Adapter is the external collaborator the Dispatcher calls to
// actually move bytes. Implementations must not block beyond timeout.
type Adapter interface {
	// Send delivers body to url and classifies the result. The returned
	// error, if non-nil, is informational (logging/tracing) — the
	// Outcome is authoritative for retry decisions.
	Send(ctx context.Context, url string, body []byte, timeout time.Duration) (Outcome, error)

	// Probe performs a lightweight liveness check against url, used by
	// the health monitor. It never returns an error; failure to reach
	// the target within timeout is simply reported as false.
	Probe(ctx context.Context, url string, timeout time.Duration) bool
}

// ClassifyStatus maps an HTTP status code to an Outcome per spec §4.3:
// 2xx -> success, 408/429/5xx -> retriable, other 4xx -> permanent.
func ClassifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == 408, status == 429, status >= 500:
		return OutcomeRetriable
	case status >= 400:
		return OutcomePermanent
	default:
		// Unexpected status classes (1xx/3xx) are treated as retriable;
		// they indicate the target is reachable but behaving oddly.
		return OutcomeRetriable
	}
}
