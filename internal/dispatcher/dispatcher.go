// Package dispatcher ties the Selector and Transport Adapter together
// (spec §4.3): for a given packet it selects a target, sends, classifies
// the outcome, and on retriable failure re-selects — preferring a
// target it hasn't tried yet for this packet, falling back to reuse
// once every candidate has been tried — and retries with exponential
// backoff up to a bounded attempt count.
//
// Grounded on resilience.WithRetry's attempt/backoff loop (the teacher's
// internal/core/resilience/retry.go), adapted so each retry re-selects a
// target instead of re-attempting the same one, and on the queue.go
// retryPublish/classifyError pairing from the teacher's publishing
// package.
package dispatcher

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/selector"
	"github.com/mihika12345b/log-distributor/internal/transport"
	"github.com/mihika12345b/log-distributor/pkg/metrics"
)

// Config controls the dispatch attempt loop.
type Config struct {
	// MaxAttempts is the total number of attempts per packet, i.e.
	// retries+1 (spec §2 "retries" config field).
	MaxAttempts int
	// BaseDelay is the initial backoff; delay for attempt index i
	// (0-based, counted from the first retry) is BaseDelay * 2^i.
	BaseDelay time.Duration
	// SendTimeout bounds each individual Send call.
	SendTimeout time.Duration
}

// Dispatcher dispatches packets to targets drawn from Registry via
// Selector, sending them through a Transport Adapter.
type Dispatcher struct {
	registry  *registry.Registry
	transport transport.Adapter
	rand      selector.Rand
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a Dispatcher. metrics and logger may be nil, in which case
// metrics recording is skipped and slog.Default() is used.
func New(reg *registry.Registry, adapter transport.Adapter, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  reg,
		transport: adapter,
		rand:      rand.New(rand.NewSource(rand.Int63())),
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

// Dispatch attempts to deliver body, retrying against freshly selected
// targets on retriable failure. It returns nil on success, a
// NoTargetsError if no healthy target existed even for the first
// attempt, a *PermanentError if a target short-circuited the retry loop
// with a non-retriable rejection, or a *ExhaustedError if every attempt
// was retriable but still failed.
//
// Per spec §9's Open Question, once the exclusion set has absorbed
// every currently-healthy target the dispatcher reuses a previously-
// tried target rather than terminating early with NoTargets: this is
// the alternative the spec names explicitly, and it is the only
// reading consistent with §8 scenario 4 (a single always-failing
// target must still see retries+1 transport attempts).
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) error {
	excluded := make(map[string]struct{})
	var lastErr error
	var lastTarget string

	sent := 0
	defer func() {
		if d.metrics != nil && sent > 0 {
			d.metrics.DispatchAttempts.Observe(float64(sent))
		}
	}()

	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		snap := d.registry.Snapshot()
		target, err := selector.Select(snap, excluded, d.rand)
		if err != nil {
			// The exclusion set may have absorbed every healthy
			// target while healthy targets still exist overall;
			// re-select ignoring exclusion so a single-target (or
			// fully-excluded) configuration still spends its whole
			// attempt budget against a real target instead of idling.
			target, err = selector.Select(snap, nil, d.rand)
			if err != nil {
				if attempt == 0 {
					return NoTargetsError{}
				}
				if d.metrics != nil {
					d.metrics.FailedExhausted.Inc()
				}
				return &ExhaustedError{Attempts: attempt, LastTarget: lastTarget, LastErr: lastErr}
			}
		}

		lastTarget = target.Name
		excluded[target.Name] = struct{}{}

		outcome, sendErr := d.transport.Send(ctx, target.URL, body, d.cfg.SendTimeout)
		sent++

		switch outcome {
		case transport.OutcomeSuccess:
			d.registry.RecordDelivered(target.Name)
			if d.metrics != nil {
				d.metrics.Delivered.Inc()
				d.metrics.TargetDelivered.WithLabelValues(target.Name).Inc()
			}
			return nil

		case transport.OutcomePermanent:
			d.registry.RecordFailed(target.Name)
			if d.metrics != nil {
				d.metrics.TargetFailed.WithLabelValues(target.Name).Inc()
				d.metrics.FailedExhausted.Inc()
			}
			d.logger.Warn("dispatch short-circuited on permanent failure",
				"target", target.Name, "attempt", attempt+1, "error", sendErr)
			return &PermanentError{Target: target.Name, Err: sendErr}

		default: // OutcomeRetriable
			d.registry.RecordFailed(target.Name)
			if d.metrics != nil {
				d.metrics.TargetFailed.WithLabelValues(target.Name).Inc()
			}
			lastErr = sendErr
			d.logger.Debug("dispatch attempt failed, will retry",
				"target", target.Name, "attempt", attempt+1, "error", sendErr)
		}

		if attempt < d.cfg.MaxAttempts-1 {
			delay := backoff(d.cfg.BaseDelay, attempt)
			if d.metrics != nil {
				d.metrics.BackoffSeconds.Observe(delay.Seconds())
			}
			if !waitWithContext(ctx, delay) {
				if d.metrics != nil {
					d.metrics.FailedExhausted.Inc()
				}
				return &ExhaustedError{Attempts: attempt + 1, LastTarget: lastTarget, LastErr: ctx.Err()}
			}
		}
	}

	if d.metrics != nil {
		d.metrics.FailedExhausted.Inc()
	}
	return &ExhaustedError{Attempts: d.cfg.MaxAttempts, LastTarget: lastTarget, LastErr: lastErr}
}

// backoff computes BaseDelay * 2^attemptIndex (spec §4.3).
func backoff(base time.Duration, attemptIndex int) time.Duration {
	return base * time.Duration(1<<uint(attemptIndex))
}

func waitWithContext(ctx context.Context, delay time.Duration) bool {
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
