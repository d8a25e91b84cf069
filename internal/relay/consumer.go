package relay

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Handler processes one relayed payload. It must not panic past its own
// boundary; errors are its own to log.
type Handler interface {
	HandlePayload(ctx context.Context, url string, data []byte)
}

// Consumer drains the relay one packet at a time. It is the only writer of
// the account store.
type Consumer struct {
	Client  *Client
	Handler Handler
	// PollInterval is the idle wait after finding the queue empty.
	PollInterval time.Duration
	// ReconnectDelay is the wait after the relay could not be reached.
	ReconnectDelay time.Duration
	Logger         *log.Logger
}

// Run polls until ctx is done. Cancellation is observed between packets,
// never in the middle of one.
func (c *Consumer) Run(ctx context.Context) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	for {
		if ctx.Err() != nil {
			return
		}

		pkt, ok, err := c.Client.Pop(ctx)
		var wait time.Duration
		switch {
		case errors.Is(err, ErrCorruptPacket):
			logger.Error("discarding undecodable packet", "err", err)
			continue
		case err != nil:
			logger.Error("relay connect failed", "retry_in", c.ReconnectDelay, "err", err)
			wait = c.ReconnectDelay
		case !ok:
			wait = c.PollInterval
		default:
			logger.Info("got data", "bytes", len(pkt.Data), "url", pkt.URL)
			c.Handler.HandlePayload(context.WithoutCancel(ctx), pkt.URL, pkt.Data)
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
