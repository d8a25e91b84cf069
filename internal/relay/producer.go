package relay

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
)

// ProducerOptions tunes delivery retries.
type ProducerOptions struct {
	// Buffer is the number of packets held in-process while the relay is
	// unreachable or full.
	Buffer int
	// RetryDelay is the fixed wait after the relay could not be reached.
	RetryDelay time.Duration
	// MaxFullDelay caps the growing wait while the relay is full.
	MaxFullDelay time.Duration
}

// Producer hands captured packets to the relay without ever blocking the
// caller. Each packet is retried until delivered or the producer stops.
type Producer struct {
	client *Client
	logger *log.Logger
	buf    chan Packet
	opts   ProducerOptions

	dropped atomic.Uint64
}

func NewProducer(client *Client, opts ProducerOptions, logger *log.Logger) *Producer {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxFullDelay <= 0 {
		opts.MaxFullDelay = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Producer{
		client: client,
		logger: logger,
		buf:    make(chan Packet, opts.Buffer),
		opts:   opts,
	}
}

// Offer queues p for delivery. It returns false, and counts a drop, when the
// in-process buffer is already full.
func (p *Producer) Offer(pkt Packet) bool {
	select {
	case p.buf <- pkt:
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("relay buffer full, dropping packet", "url", pkt.URL, "bytes", len(pkt.Data))
		return false
	}
}

// Dropped is the number of packets Offer refused.
func (p *Producer) Dropped() uint64 { return p.dropped.Load() }

// Run delivers buffered packets in order until ctx is done.
func (p *Producer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt := <-p.buf:
			if err := p.deliver(ctx, pkt); err != nil {
				return
			}
		}
	}
}

// deliver retries one packet: a full relay backs off exponentially, an
// unreachable relay is retried after the fixed delay. It only gives up when
// ctx is done.
func (p *Producer) deliver(ctx context.Context, pkt Packet) error {
	full := backoff.NewExponentialBackOff()
	full.InitialInterval = p.opts.RetryDelay
	full.MaxInterval = p.opts.MaxFullDelay
	unreachable := backoff.NewConstantBackOff(p.opts.RetryDelay)

	for attempt := 1; ; attempt++ {
		err := p.client.Push(ctx, pkt)
		if err == nil {
			p.logger.Debug("packet relayed", "url", pkt.URL, "bytes", len(pkt.Data), "attempt", attempt)
			return nil
		}

		var wait time.Duration
		if errors.Is(err, ErrQueueFull) {
			wait = full.NextBackOff()
			p.logger.Warn("relay full, backing off", "wait", wait, "attempt", attempt)
		} else {
			full.Reset()
			wait = unreachable.NextBackOff()
			p.logger.Warn("relay unavailable, retrying", "wait", wait, "attempt", attempt, "err", err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
