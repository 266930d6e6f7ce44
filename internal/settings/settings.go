// Package settings loads operational parameters from the shared store into
// a process-wide cached snapshot, with hard-coded fallback defaults for
// anything missing or malformed.
package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"go.uber.org/zap"
)

// Setting names recognized in the shared settings series. Interval values
// are stored as integer seconds.
const (
	KeyLivenessTimeout   = "ALERT_THRESHOLD"
	KeyHeartbeatInterval = "HEARTBEAT_INTERVAL"
	KeyKeepalivePeriod   = "KEEPALIVE_INTERVAL"
	KeyProbeTarget       = "PING_TARGET"
	KeyNTPServer         = "NTP_SERVER"
)

// Snapshot is an immutable view of the operational settings. Consumers hold
// a copy; a settings change is picked up on the next refresh, not mid-tick.
type Snapshot struct {
	// LivenessTimeout is how long a device may go without a keepalive
	// before the watchdog marks it down.
	LivenessTimeout time.Duration

	// HeartbeatInterval is the maximum gap between consecutive status
	// writes for a device, even absent a change.
	HeartbeatInterval time.Duration

	// KeepalivePeriod is the agent's publish cadence.
	KeepalivePeriod time.Duration

	// ProbeTarget is the host or URL used for the reachability check.
	ProbeTarget string

	// NTPServer is the time source for best-effort clock alignment.
	NTPServer string

	// LoadedAt records when this snapshot was read from the store.
	LoadedAt time.Time
}

// Defaults are applied per key whenever the store has no value or the
// stored value does not parse.
var Defaults = Snapshot{
	LivenessTimeout:   120 * time.Second,
	HeartbeatInterval: 300 * time.Second,
	KeepalivePeriod:   30 * time.Second,
	ProbeTarget:       "8.8.8.8",
	NTPServer:         "pool.ntp.org",
}

// Provider caches the latest snapshot and refreshes it on an explicit timer
// rather than on every access.
type Provider struct {
	store  series.Store
	logger *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewProvider creates a Provider seeded with Defaults.
func NewProvider(store series.Store, logger *zap.Logger) *Provider {
	return &Provider{
		store:  store,
		logger: logger,
		snap:   Defaults,
	}
}

// Current returns the cached snapshot.
func (p *Provider) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Load reads the settings series and replaces the cached snapshot.
// A store read failure keeps the previous snapshot and returns the error;
// individual missing or malformed values fall back to their defaults with
// a warning, never an error.
func (p *Provider) Load(ctx context.Context) (Snapshot, error) {
	points, err := p.store.Last(ctx, series.SeriesSettings)
	if err != nil {
		return p.Current(), err
	}

	values := make(map[string]string, len(points))
	for _, pt := range points {
		values[pt.Key] = pt.Value
	}

	snap := Snapshot{
		LivenessTimeout:   p.seconds(values, KeyLivenessTimeout, Defaults.LivenessTimeout),
		HeartbeatInterval: p.seconds(values, KeyHeartbeatInterval, Defaults.HeartbeatInterval),
		KeepalivePeriod:   p.seconds(values, KeyKeepalivePeriod, Defaults.KeepalivePeriod),
		ProbeTarget:       p.text(values, KeyProbeTarget, Defaults.ProbeTarget),
		NTPServer:         p.text(values, KeyNTPServer, Defaults.NTPServer),
		LoadedAt:          time.Now().UTC(),
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()

	return snap, nil
}

// Run refreshes the snapshot every refreshEvery until ctx is cancelled.
// Refresh failures are logged and retried on the next interval.
func (p *Provider) Run(ctx context.Context, refreshEvery time.Duration) {
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Load(ctx); err != nil {
				p.logger.Warn("settings refresh failed", zap.Error(err))
			}
		}
	}
}

func (p *Provider) seconds(values map[string]string, key string, def time.Duration) time.Duration {
	raw, ok := values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		p.logger.Warn("malformed setting, using default",
			zap.String("setting", key),
			zap.String("value", raw),
			zap.Duration("default", def),
		)
		return def
	}
	return time.Duration(n) * time.Second
}

func (p *Provider) text(values map[string]string, key, def string) string {
	if raw, ok := values[key]; ok && raw != "" {
		return raw
	}
	return def
}
