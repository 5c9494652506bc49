package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

// CleanupService discards upload sessions abandoned for longer than a TTL.
type CleanupService struct {
	uploads *UploadService
	ttl     time.Duration
	logger  logging.Logger
}

func NewCleanupService(uploads *UploadService, ttl time.Duration) *CleanupService {
	return &CleanupService{
		uploads: uploads,
		ttl:     ttl,
		logger:  uploads.deps.logger("cleanup"),
	}
}

// CleanupExpiredSessions removes incomplete sessions idle since before now-ttl
// and returns how many were removed. Failures on single sessions are logged.
func (c *CleanupService) CleanupExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-c.ttl)
	deps := c.uploads.deps

	expired, err := deps.Repos.Sessions(deps.Runner.Conn()).ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, session := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		err := func() error {
			unlock := c.uploads.locks.Lock(session.Token)
			defer unlock()

			current, err := deps.Repos.Sessions(deps.Runner.Conn()).Get(ctx, session.Token)
			if err != nil {
				return err
			}
			if current.IsComplete || !current.UpdatedAt.Before(cutoff) {
				return nil
			}
			if err := c.uploads.discard(ctx, current); err != nil {
				return err
			}
			removed++
			return nil
		}()
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			c.logger.Error(ctx, "failed to remove expired session", "upload_id", session.Token, "error", err)
		}
	}

	c.logger.Info(ctx, "expired sessions cleanup completed", "found", len(expired), "removed", removed)
	return removed, nil
}

// Run repeats the cleanup every interval until ctx is done.
func (c *CleanupService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		c.logger.Warn(ctx, "cleanup task disabled", "interval", interval)
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info(ctx, "cleanup task initialized", "interval", interval, "ttl", c.ttl)

	for {
		select {
		case <-ticker.C:
			if _, err := c.CleanupExpiredSessions(ctx, time.Now()); err != nil {
				c.logger.Error(ctx, "cleanup task failed", "error", err)
			}
		case <-ctx.Done():
			c.logger.Info(ctx, "cleanup task stopped")
			return
		}
	}
}
