// Package intake implements the Intake Buffer (spec §4.4): a bounded
// FIFO queue between the ingestion surface and the worker pool. Offer
// never blocks; callers get an immediate Accepted/Overloaded/Closed
// signal, matching the teacher's non-blocking channel-send pattern in
// the publishing queue (internal/infrastructure/publishing/queue.go).
package intake

import (
	"sync"

	"github.com/google/uuid"
)

// Result is the outcome of an Offer call.
type Result int

const (
	Accepted Result = iota
	Overloaded
	Closed
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Overloaded:
		return "overloaded"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Packet is one unit of work flowing through the buffer. ID is assigned
// on Offer for tracing through logs and the dead-letter sink.
type Packet struct {
	ID   string
	Body []byte
}

// Buffer is a bounded, non-blocking FIFO queue of Packets.
type Buffer struct {
	ch chan Packet

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Buffer with the given capacity (spec §2 "capacity").
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		ch:     make(chan Packet, capacity),
		closed: make(chan struct{}),
	}
}

// Offer attempts to enqueue body without blocking. It assigns a new
// packet ID and returns Accepted if there was room, Overloaded if the
// buffer was full, or Closed if the buffer has been closed.
func (b *Buffer) Offer(body []byte) (Packet, Result) {
	select {
	case <-b.closed:
		return Packet{}, Closed
	default:
	}

	p := Packet{ID: uuid.NewString(), Body: body}

	select {
	case b.ch <- p:
		return p, Accepted
	default:
		return Packet{}, Overloaded
	}
}

// Take blocks until a packet is available or the buffer is closed and
// drained, in which case ok is false.
func (b *Buffer) Take() (Packet, bool) {
	p, ok := <-b.ch
	return p, ok
}

// Close stops accepting new packets. Already-queued packets remain
// available to Take until drained. Safe to call more than once.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
		close(b.ch)
	})
}

// Depth reports the current number of queued packets.
func (b *Buffer) Depth() int {
	return len(b.ch)
}

// Capacity reports the configured capacity.
func (b *Buffer) Capacity() int {
	return cap(b.ch)
}
