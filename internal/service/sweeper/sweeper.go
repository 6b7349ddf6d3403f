// Package sweeper periodically removes expired refresh records.
package sweeper

import (
	"context"
	"time"

	"github.com/nkiryanov/tenantauth/internal/logger"
)

const defaultInterval = time.Hour

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	interval time.Duration
	logger   logger.Logger
	purger   purger
}

func New(p purger, l logger.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Sweeper{
		interval: interval,
		logger:   l,
		purger:   p,
	}
}

// Run starts sweeping in background. Returned channel is closed when the loop exits
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped by context")
				return

			case <-ticker.C:
				deleted, err := s.purger.PurgeExpired(ctx)
				if err != nil {
					s.logger.Error("Failed to purge expired refresh records", "error", err)
					continue
				}
				if deleted > 0 {
					s.logger.Info("Expired refresh records purged", "count", deleted)
				}
			}
		}
	}()

	return idleStopped
}
