// Package timesync aligns the local clock against an NTP source on a
// best-effort basis. Sync failure is never fatal; callers fall back to the
// unadjusted local clock.
package timesync

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"
)

// Clock reports the current time, adjusted by the last successful NTP
// offset. Before any sync succeeds the offset is zero.
type Clock struct {
	server  string
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.RWMutex
	offset   time.Duration
	syncedAt time.Time
}

// NewClock creates a Clock for the given NTP server.
func NewClock(server string, timeout time.Duration, logger *zap.Logger) *Clock {
	return &Clock{
		server:  server,
		timeout: timeout,
		logger:  logger,
	}
}

// Sync queries the NTP server and records the clock offset. On failure the
// previous offset is kept and the error returned for logging.
func (c *Clock) Sync() error {
	resp, err := ntp.QueryWithOptions(c.server, ntp.QueryOptions{Timeout: c.timeout})
	if err != nil {
		return err
	}
	if err := resp.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.syncedAt = time.Now().UTC()
	c.mu.Unlock()

	c.logger.Debug("clock synchronized",
		zap.String("server", c.server),
		zap.Duration("offset", resp.ClockOffset),
	)
	return nil
}

// Run re-syncs every interval until ctx is cancelled. Failures are logged
// and the previous offset stays in effect.
func (c *Clock) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(); err != nil {
				c.logger.Warn("time sync failed", zap.Error(err))
			}
		}
	}
}

// Now returns the offset-adjusted current time in UTC.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().UTC().Add(c.offset)
}

// Offset returns the last recorded clock offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
