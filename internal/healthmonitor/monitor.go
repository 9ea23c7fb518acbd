// Package healthmonitor implements the Health Monitor (spec §4.6): a
// periodic prober that probes each target via the Transport Adapter and
// writes the result into the Target Registry.
//
// Grounded on the state-transition-logging idiom of the teacher's
// CircuitBreaker (internal/infrastructure/publishing/circuit_breaker.go)
// — log only on a state change, not on every tick — adapted from a
// per-call breaker into a periodic prober, since the spec's health
// state is advisory (feeds the Selector via exclusion/weighting) rather
// than request-blocking.
package healthmonitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/transport"
	"github.com/mihika12345b/log-distributor/pkg/metrics"
)

// Config controls probing cadence.
type Config struct {
	// Interval between probe rounds.
	Interval time.Duration
	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration
}

// Monitor periodically probes every registered target and updates its
// health flag in the Registry.
type Monitor struct {
	registry  *registry.Registry
	transport transport.Adapter
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger

	lastKnown   map[string]bool
	lastKnownMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// New builds a Monitor. metrics and logger may be nil.
func New(reg *registry.Registry, adapter transport.Adapter, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	lastKnown := make(map[string]bool)
	for _, t := range reg.Snapshot().Targets {
		lastKnown[t.Name] = t.Healthy
	}
	return &Monitor{
		registry:  reg,
		transport: adapter,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		lastKnown: lastKnown,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the monitor's probe loop in a new goroutine. Call Stop
// to terminate it.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop signals the probe loop to exit and waits for it to finish.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.probeAll(ctx)

	for {
		select {
		case <-ticker.C:
			m.probeAll(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// probeAll probes every target concurrently and applies results to the
// registry, logging only on a health-state transition.
func (m *Monitor) probeAll(ctx context.Context) {
	snap := m.registry.Snapshot()

	var wg sync.WaitGroup
	for _, t := range snap.Targets {
		wg.Add(1)
		go func(name, url string) {
			defer wg.Done()
			healthy := m.transport.Probe(ctx, url, m.cfg.ProbeTimeout)
			m.apply(name, healthy)
		}(t.Name, t.URL)
	}
	wg.Wait()
}

func (m *Monitor) apply(name string, healthy bool) {
	m.lastKnownMu.Lock()
	prev, known := m.lastKnown[name]
	changed := !known || prev != healthy
	m.lastKnown[name] = healthy
	m.lastKnownMu.Unlock()

	if err := m.registry.SetHealth(name, healthy); err != nil {
		m.logger.Error("failed to record probe result", "target", name, "error", err)
		return
	}

	if m.metrics != nil {
		m.metrics.RecordHealth(name, healthy)
	}

	if changed {
		if healthy {
			m.logger.Info("target recovered", "target", name)
		} else {
			m.logger.Warn("target marked unhealthy", "target", name)
		}
	}
}
