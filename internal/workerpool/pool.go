// Package workerpool implements the Worker Pool (spec §4.5): a fixed
// number of long-lived goroutines that drain the Intake Buffer and
// invoke the Dispatcher, never propagating errors back to the caller.
//
// Grounded on the teacher's PublishingQueue worker/Start/Stop pattern
// (internal/infrastructure/publishing/queue.go), simplified to a single
// FIFO source (the spec has no priority tiers) and generalized so a
// worker's unit of work is a dispatch rather than a priority-tiered
// publish-with-circuit-breaker.
package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mihika12345b/log-distributor/internal/dispatcher"
	"github.com/mihika12345b/log-distributor/internal/intake"
	"github.com/mihika12345b/log-distributor/pkg/metrics"
)

// DeadLetterFunc is invoked for every packet a worker could not deliver
// (Exhausted or NoTargets), so the caller can persist it for later
// inspection. It must not block for long; it runs on the worker
// goroutine.
type DeadLetterFunc func(p intake.Packet, err error)

// Pool runs a fixed set of workers that take packets from a Buffer and
// dispatch them.
type Pool struct {
	buffer     *intake.Buffer
	dispatcher *dispatcher.Dispatcher
	numWorkers int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	deadLetter DeadLetterFunc

	wg sync.WaitGroup
}

// New builds a Pool. metrics, logger, and deadLetter may be nil.
func New(buffer *intake.Buffer, disp *dispatcher.Dispatcher, numWorkers int, m *metrics.Metrics, logger *slog.Logger, deadLetter DeadLetterFunc) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		buffer:     buffer,
		dispatcher: disp,
		numWorkers: numWorkers,
		metrics:    m,
		logger:     logger,
		deadLetter: deadLetter,
	}
}

// Start launches the worker goroutines. Each worker runs until the
// buffer is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", "workers", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits up to timeout for in-flight workers to drain after the
// buffer has been closed by the caller. It does not close the buffer
// itself; callers close the Buffer first so Take() unblocks.
func (p *Pool) Stop(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return true
	case <-time.After(timeout):
		p.logger.Warn("worker pool stop timed out, workers may still be in flight", "timeout", timeout)
		return false
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for {
		packet, ok := p.buffer.Take()
		if !ok {
			p.logger.Debug("worker exiting, buffer drained and closed", "worker_id", id)
			return
		}

		if p.metrics != nil {
			p.metrics.BufferDepth.Set(float64(p.buffer.Depth()))
		}

		err := p.dispatcher.Dispatch(ctx, packet.Body)
		if err == nil {
			p.logger.Debug("packet delivered", "worker_id", id, "packet_id", packet.ID)
			continue
		}

		switch err.(type) {
		case dispatcher.NoTargetsError:
			if p.metrics != nil {
				p.metrics.NoTargets.Inc()
			}
			p.logger.Warn("packet dropped, no healthy target", "worker_id", id, "packet_id", packet.ID)
		case *dispatcher.ExhaustedError, *dispatcher.PermanentError:
			p.logger.Warn("packet dropped after dispatch failure",
				"worker_id", id, "packet_id", packet.ID, "error", err)
		default:
			p.logger.Error("unexpected dispatch error", "worker_id", id, "packet_id", packet.ID, "error", err)
		}

		if p.deadLetter != nil {
			p.deadLetter(packet, err)
		}
	}
}
