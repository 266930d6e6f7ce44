// Package uptime replays a device's status history inside a rolling window
// into an uptime percentage.
package uptime

import (
	"context"
	"sort"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/pkg/models"
)

// Standard reporting windows.
const (
	WindowHour  = time.Hour
	WindowDay   = 24 * time.Hour
	WindowMonth = 30 * 24 * time.Hour
)

// Calculator computes rolling-window uptime from the device_status series.
type Calculator struct {
	store series.Store
}

// NewCalculator creates a Calculator over the given store.
func NewCalculator(store series.Store) *Calculator {
	return &Calculator{store: store}
}

// Percent returns the fraction of [windowStart, now) the device spent in
// status up, as a percentage in [0, 100]. A zero-duration window yields 0.
func (c *Calculator) Percent(ctx context.Context, mac string, windowStart, now time.Time) (float64, error) {
	if !now.After(windowStart) {
		return 0, nil
	}

	events, err := c.store.Range(ctx, series.SeriesDeviceStatus, mac, windowStart, now)
	if err != nil {
		return 0, err
	}

	// Writes are expected monotonic; re-sort defensively. The sort is stable
	// so duplicate timestamps keep insertion order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	// The status in effect at windowStart is the last event before the
	// window. With no prior event the device is unknown until its first
	// event; with no events inside the window either, the prior event is by
	// definition the device's current status.
	status, err := c.statusBefore(ctx, mac, windowStart)
	if err != nil {
		return 0, err
	}

	var up time.Duration
	cursor := windowStart
	for _, e := range events {
		if status == models.StatusUp {
			up += e.Time.Sub(cursor)
		}
		status = models.ParseStatus(e.Value)
		cursor = e.Time
	}
	if status == models.StatusUp {
		up += now.Sub(cursor)
	}

	pct := 100 * float64(up) / float64(now.Sub(windowStart))
	if pct < 0 {
		return 0, nil
	}
	if pct > 100 {
		return 100, nil
	}
	return pct, nil
}

// statusBefore returns the device's status as of just before t, or
// StatusUnknown if the device has no event earlier than t.
func (c *Calculator) statusBefore(ctx context.Context, mac string, t time.Time) (models.Status, error) {
	prior, err := c.store.Range(ctx, series.SeriesDeviceStatus, mac, time.Time{}, t)
	if err != nil {
		return models.StatusUnknown, err
	}
	if len(prior) == 0 {
		return models.StatusUnknown, nil
	}
	return models.ParseStatus(prior[len(prior)-1].Value), nil
}
