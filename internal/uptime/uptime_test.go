package uptime_test

import (
	"context"
	"testing"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/testutil"
	"github.com/VeriNexus/verinexus-speedtest/internal/uptime"
	"github.com/stretchr/testify/require"
)

const mac = "aa:bb:cc:dd:ee:ff"

func appendStatus(t *testing.T, s series.Store, status string, at time.Time) {
	t.Helper()
	require.NoError(t, s.Append(context.Background(), series.Point{
		Series: series.SeriesDeviceStatus,
		Key:    mac,
		Value:  status,
		Time:   at,
	}))
}

func TestPercentZeroDurationWindow(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	pct, err := calc.Percent(context.Background(), mac, now, now)
	require.NoError(t, err)
	require.Zero(t, pct)
}

func TestPercentNoHistoryAtAll(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	pct, err := calc.Percent(context.Background(), mac, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Zero(t, pct)
}

func TestPercentNoEventsInWindowFallsBackToCurrentStatus(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// Only event is well before the window; it is the current status.
	appendStatus(t, s, "up", now.Add(-48*time.Hour))

	pct, err := calc.Percent(context.Background(), mac, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.InDelta(t, 100.0, pct, 1e-9)
}

func TestPercentAllUpIs100(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	appendStatus(t, s, "up", start)
	appendStatus(t, s, "up", start.Add(20*time.Minute))
	appendStatus(t, s, "up", start.Add(40*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 100.0, pct, 1e-9)
}

func TestPercentSingleDownEventWholeWindowDown(t *testing.T) {
	// A single down event half-way through the hour, device down before it
	// as well: 0% for the hour.
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	appendStatus(t, s, "down", now.Add(-30*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Zero(t, pct)
}

func TestPercentHalfWindowUp(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	appendStatus(t, s, "up", start)
	appendStatus(t, s, "down", start.Add(30*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 50.0, pct, 1e-9)
}

func TestPercentEventExactlyAtWindowStart(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	// Prior status down, event at the exact boundary flips to up.
	appendStatus(t, s, "down", start.Add(-time.Hour))
	appendStatus(t, s, "up", start)

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 100.0, pct, 1e-9)
}

func TestPercentPriorStatusCoversWindowHead(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	// Up since before the window, down for the final 15 minutes.
	appendStatus(t, s, "up", start.Add(-2*time.Hour))
	appendStatus(t, s, "down", now.Add(-15*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 75.0, pct, 1e-9)
}

func TestPercentMaintenanceDoesNotCountAsUp(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	appendStatus(t, s, "maintenance", start)
	appendStatus(t, s, "up", start.Add(45*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 25.0, pct, 1e-9)
}

func TestPercentDuplicateTimestampsStable(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	// Two events at the same instant; insertion order decides: final is up.
	appendStatus(t, s, "down", start)
	appendStatus(t, s, "up", start)

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.InDelta(t, 100.0, pct, 1e-9)
}

func TestPercentAlwaysWithinBounds(t *testing.T) {
	s := testutil.NewSeriesStore(t)
	calc := uptime.NewCalculator(s)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	appendStatus(t, s, "up", start.Add(-time.Hour))
	appendStatus(t, s, "down", start.Add(10*time.Minute))
	appendStatus(t, s, "up", start.Add(20*time.Minute))
	appendStatus(t, s, "unknown", start.Add(50*time.Minute))

	pct, err := calc.Percent(context.Background(), mac, start, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pct, 0.0)
	require.LessOrEqual(t, pct, 100.0)
}
