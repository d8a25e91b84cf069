package catalog

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Refresher keeps a Catalog current. After a refresh with any failed pair the
// next attempt comes after Retry instead of Interval.
type Refresher struct {
	Catalog  *Catalog
	Interval time.Duration
	Retry    time.Duration
	Logger   *log.Logger
}

// Run refreshes immediately and then on schedule until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	for {
		wait := r.Interval
		if err := r.Catalog.Refresh(ctx); err != nil {
			logger.Warn("catalog refresh incomplete", "retry_in", r.Retry, "err", err)
			wait = r.Retry
		} else {
			logger.Info("catalog refreshed", "next_in", r.Interval)
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
