package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// State is the connection state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Dialer opens a queue connection.
type Dialer func(ctx context.Context) (Queue, error)

// Client connects lazily on first use and drops back to disconnected after
// any transport error, so the next call reconnects.
//
//	Disconnected -> Connecting -> Connected -> Disconnected (on error)
//	                Connecting -> Disconnected (dial failure)
type Client struct {
	dial   Dialer
	logger *log.Logger

	mu    sync.Mutex
	state State
	queue Queue
}

func NewClient(dial Dialer, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{dial: dial, logger: logger}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Push enqueues p. ErrQueueFull is returned as is; connection problems are
// wrapped in ErrDisconnected.
func (c *Client) Push(ctx context.Context, p Packet) error {
	q, err := c.connect(ctx)
	if err != nil {
		return err
	}
	err = q.Push(ctx, p)
	switch {
	case err == nil, errors.Is(err, ErrQueueFull):
		return err
	default:
		c.reset(q, err)
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
}

// Pop dequeues one packet without blocking.
func (c *Client) Pop(ctx context.Context) (Packet, bool, error) {
	q, err := c.connect(ctx)
	if err != nil {
		return Packet{}, false, err
	}
	p, ok, err := q.Pop(ctx)
	switch {
	case err == nil, errors.Is(err, ErrCorruptPacket):
		return p, ok, err
	default:
		c.reset(q, err)
		return Packet{}, false, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
}

func (c *Client) connect(ctx context.Context) (Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected {
		return c.queue, nil
	}
	c.state = StateConnecting
	q, err := c.dial(ctx)
	if err != nil {
		c.state = StateDisconnected
		return nil, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	c.queue = q
	c.state = StateConnected
	c.logger.Info("relay connected")
	return q, nil
}

// reset drops q if it is still the current connection.
func (c *Client) reset(q Queue, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue != q {
		return
	}
	c.logger.Warn("relay connection lost", "err", cause)
	_ = q.Close()
	c.queue = nil
	c.state = StateDisconnected
}

// Close releases the current connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue == nil {
		return nil
	}
	err := c.queue.Close()
	c.queue = nil
	c.state = StateDisconnected
	return err
}
