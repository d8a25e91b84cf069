// Package relay moves captured payloads from the interception proxy to the
// extraction consumer through a small bounded FIFO.
package relay

import (
	"context"
	"errors"
)

// DefaultCapacity is the number of packets the relay holds before refusing more.
const DefaultCapacity = 10

var (
	// ErrQueueFull is returned by Push when the queue is at capacity.
	ErrQueueFull = errors.New("relay: queue full")
	// ErrDisconnected wraps every failure to reach the queue.
	ErrDisconnected = errors.New("relay: disconnected")
	// ErrCorruptPacket is returned by Pop for an element that could not be
	// decoded. The element has been removed from the queue.
	ErrCorruptPacket = errors.New("relay: corrupt packet")
)

// Queue is a bounded FIFO of packets. Pop never blocks: ok is false when the
// queue is empty.
type Queue interface {
	Push(ctx context.Context, p Packet) error
	Pop(ctx context.Context) (p Packet, ok bool, err error)
	Close() error
}

// MemoryQueue is an in-process Queue used when proxy and consumer share a
// process.
type MemoryQueue struct {
	ch chan Packet
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryQueue{ch: make(chan Packet, capacity)}
}

func (q *MemoryQueue) Push(ctx context.Context, p Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (Packet, bool, error) {
	if err := ctx.Err(); err != nil {
		return Packet{}, false, err
	}
	select {
	case p := <-q.ch:
		return p, true, nil
	default:
		return Packet{}, false, nil
	}
}

// Len is the number of queued packets.
func (q *MemoryQueue) Len() int { return len(q.ch) }

func (q *MemoryQueue) Close() error { return nil }

// MemoryDialer returns a Dialer that always hands out q.
func MemoryDialer(q *MemoryQueue) Dialer {
	return func(context.Context) (Queue, error) {
		return q, nil
	}
}
