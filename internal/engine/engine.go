// Package engine assembles the Target Registry, Selector, Dispatcher,
// Intake Buffer, Worker Pool, Health Monitor, and Statistics into the
// single long-lived value described in spec §9 ("Global mutable state
// -> scoped components"): a value constructed once at startup and
// passed to the HTTP ingestion surface, with no ambient package-level
// state anywhere in the dispatch engine.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mihika12345b/log-distributor/internal/dispatcher"
	"github.com/mihika12345b/log-distributor/internal/healthmonitor"
	"github.com/mihika12345b/log-distributor/internal/intake"
	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/stats"
	"github.com/mihika12345b/log-distributor/internal/transport"
	"github.com/mihika12345b/log-distributor/internal/workerpool"
	"github.com/mihika12345b/log-distributor/pkg/metrics"
)

// Config is the subset of the process configuration the engine needs
// to wire itself up; cmd/distributor translates the Viper-loaded
// config.Config into this shape.
type Config struct {
	Targets []registry.TargetConfig

	Workers  int
	Capacity int

	Dispatcher dispatcher.Config
	Health     healthmonitor.Config

	// MetricsNamespace is passed to metrics.New; empty registers
	// metrics with no namespace prefix.
	MetricsNamespace string
}

// Engine is the assembled dispatch engine: everything in spec §2's
// component list, wired together and ready to run.
type Engine struct {
	Registry *registry.Registry
	Buffer   *intake.Buffer
	Pool     *workerpool.Pool
	Monitor  *healthmonitor.Monitor
	Stats    *stats.Stats
	Metrics  *metrics.Metrics

	logger *slog.Logger
}

// New constructs an Engine. adapter is the Transport Adapter
// implementation (spec §6), the engine's only required external
// collaborator. reg is the Prometheus registerer metrics register
// against; with nil the metrics are not registered anywhere. Returns a
// *registry.ConfigError if the target configuration is invalid.
func New(cfg Config, adapter transport.Adapter, reg prometheus.Registerer, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r, err := registry.New(cfg.Targets)
	if err != nil {
		return nil, err
	}

	m := metrics.New(cfg.MetricsNamespace, reg)
	m.BufferCapacity.Set(float64(cfg.Capacity))
	for _, t := range cfg.Targets {
		m.RecordHealth(t.Name, true)
	}

	st := stats.New()

	buf := intake.New(cfg.Capacity)

	disp := dispatcher.New(r, adapter, cfg.Dispatcher, m, logger)

	deadLetter := func(p intake.Packet, derr error) {
		logger.Warn("packet dead-lettered",
			"packet_id", p.ID, "error", derr)
	}

	pool := workerpool.New(buf, disp, cfg.Workers, m, logger, func(p intake.Packet, derr error) {
		switch derr.(type) {
		case dispatcher.NoTargetsError:
			st.IncNoTargets()
		default:
			st.IncFailedExhausted()
		}
		deadLetter(p, derr)
	})

	mon := healthmonitor.New(r, adapter, cfg.Health, m, logger)

	return &Engine{
		Registry: r,
		Buffer:   buf,
		Pool:     pool,
		Monitor:  mon,
		Stats:    st,
		Metrics:  m,
		logger:   logger,
	}, nil
}

// Start launches the worker pool and health monitor.
func (e *Engine) Start(ctx context.Context) {
	e.Pool.Start(ctx)
	e.Monitor.Start(ctx)
}

// Offer submits a packet to the intake buffer (spec §6 ingestion
// boundary) and records it in Statistics. This is the only entry point
// an ingestion surface needs.
func (e *Engine) Offer(body []byte) (intake.Packet, intake.Result) {
	e.Stats.IncReceived()
	if e.Metrics != nil {
		e.Metrics.Received.Inc()
	}

	p, res := e.Buffer.Offer(body)
	switch res {
	case intake.Accepted:
		e.Stats.IncAccepted()
		if e.Metrics != nil {
			e.Metrics.Accepted.Inc()
			e.Metrics.BufferDepth.Set(float64(e.Buffer.Depth()))
		}
	case intake.Overloaded:
		e.Stats.IncRejectedOverload()
		if e.Metrics != nil {
			e.Metrics.RejectedOverload.Inc()
		}
	}
	return p, res
}

// Snapshot returns the Statistics boundary described in spec §6.
// Worker-pool successful deliveries are reflected through the
// registry's per-target delivered counters; the aggregate Delivered
// counter is derived from the sum of per-target deliveries so it
// stays consistent with the per-target breakdown (spec §8: "sum
// (per_target.delivered) == delivered").
func (e *Engine) Snapshot() stats.Snapshot {
	counters := e.Registry.Counters()

	var delivered int64
	for _, c := range counters {
		delivered += c.Delivered
	}

	snap := e.Stats.Snapshot(e.Buffer.Depth(), e.Buffer.Capacity(), counters)
	snap.Delivered = delivered
	return snap
}

// Shutdown closes the intake buffer, stops the health monitor, and
// waits up to timeout for in-flight workers to drain (spec §5
// shutdown sequencing: close intake, stop health monitor, let workers
// drain).
func (e *Engine) Shutdown(timeout time.Duration) bool {
	e.Buffer.Close()
	e.Monitor.Stop()
	return e.Pool.Stop(timeout)
}
