package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
)

// ExpiredDeleter removes notifications past their expiry.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Cleanup deletes expired notifications. Rows without an expiry are kept.
type Cleanup struct {
	store  ExpiredDeleter
	logger *slog.Logger
	now    func() time.Time
}

type CleanupOption func(*Cleanup)

func WithCleanupLogger(l *slog.Logger) CleanupOption {
	return func(c *Cleanup) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithCleanupClock(now func() time.Time) CleanupOption {
	return func(c *Cleanup) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCleanup(store ExpiredDeleter, opts ...CleanupOption) *Cleanup {
	c := &Cleanup{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is a JobFunc. A failed run is retried by the next tick.
func (c *Cleanup) Run(ctx context.Context) error {
	deleted, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		return errors.Join(ErrCleanupFailed, err)
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "expired notifications deleted",
		logger.Job(JobCleanup),
		logger.Count(deleted),
	)
	return nil
}
