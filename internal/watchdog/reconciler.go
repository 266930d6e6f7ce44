// Package watchdog reconciles the durable status history of every known
// device from keepalive recency and suspension state. It runs as an
// independent single-threaded loop; the shared store is its only link to
// the device-side agents.
package watchdog

import (
	"context"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/event"
	"github.com/VeriNexus/verinexus-speedtest/internal/metrics"
	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/settings"
	"github.com/VeriNexus/verinexus-speedtest/pkg/models"
	"go.uber.org/zap"
)

// StatusChange is the payload published on event.TopicStatusChanged when a
// device's recorded status transitions.
type StatusChange struct {
	MACAddress string
	ExternalIP string
	From       models.Status
	To         models.Status
	At         time.Time
}

// Reconciler computes each device's effective status once per tick and
// appends a status event only on change or heartbeat expiry.
type Reconciler struct {
	store    series.Store
	provider *settings.Provider
	bus      *event.Bus
	logger   *zap.Logger
	metrics  *metrics.Watchdog

	tick time.Duration
	now  func() time.Time // Injectable for tests.
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Watchdog) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithClock overrides the reconciler's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler ticking every tick.
func New(store series.Store, provider *settings.Provider, bus *event.Bus, tick time.Duration, logger *zap.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		provider: provider,
		bus:      bus,
		logger:   logger,
		tick:     tick,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes reconciliation ticks until ctx is cancelled, then performs
// one final forced flush so the last known state of every device is durable.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.logger.Info("watchdog reconciler running", zap.Duration("tick", r.tick))

	for {
		select {
		case <-ctx.Done():
			// The parent context is gone; give the flush its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			r.Flush(flushCtx)
			r.logger.Info("watchdog reconciler stopped")
			return nil
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one reconciliation pass. Store read failures skip the tick
// entirely (retried next tick); per-device write failures are isolated.
func (r *Reconciler) Reconcile(ctx context.Context) {
	r.reconcile(ctx, false)
}

// Flush runs one pass that appends a status event for every known device
// regardless of debounce state.
func (r *Reconciler) Flush(ctx context.Context) {
	r.logger.Info("forcing final status flush")
	r.reconcile(ctx, true)
}

// observation is the per-device view assembled from the three series reads.
type observation struct {
	lastKeepalive  time.Time
	keepaliveSeen  bool
	suspended      bool
	recorded       models.Status
	recordedAt     time.Time
	recordedExists bool
	externalIP     string
}

func (r *Reconciler) reconcile(ctx context.Context, force bool) {
	snap := r.provider.Current()
	now := r.now()

	devices, err := r.observe(ctx)
	if err != nil {
		r.logger.Error("reconciliation tick skipped", zap.Error(err))
		return
	}

	if r.metrics != nil {
		r.metrics.ReconcileTicks.Inc()
		r.metrics.DevicesTracked.Set(float64(len(devices)))
	}

	for mac, obs := range devices {
		effective := effectiveStatus(obs, now, snap.LivenessTimeout)
		if err := r.apply(ctx, mac, obs, effective, now, snap.HeartbeatInterval, force); err != nil {
			// One device's store failure must not halt reconciliation of
			// the others; the write is retried next tick.
			r.logger.Warn("status write failed",
				zap.String("mac_address", mac),
				zap.String("status", string(effective)),
				zap.Error(err),
			)
			if r.metrics != nil {
				r.metrics.ReconcileErrors.Inc()
			}
		}
	}
}

// observe assembles the per-device view of keepalives, suspensions, and the
// last recorded status. A device is known if it appears in any of the three.
func (r *Reconciler) observe(ctx context.Context) (map[string]*observation, error) {
	keepalives, err := r.store.Last(ctx, series.SeriesKeepalive)
	if err != nil {
		return nil, err
	}
	suspended, err := r.store.Last(ctx, series.SeriesSuspended)
	if err != nil {
		return nil, err
	}
	statuses, err := r.store.Last(ctx, series.SeriesDeviceStatus)
	if err != nil {
		return nil, err
	}

	devices := make(map[string]*observation)
	get := func(mac string) *observation {
		if obs, ok := devices[mac]; ok {
			return obs
		}
		obs := &observation{}
		devices[mac] = obs
		return obs
	}

	for _, p := range keepalives {
		obs := get(p.Key)
		obs.lastKeepalive = p.Time
		obs.keepaliveSeen = true
		if ip, ok := p.Attrs[series.AttrExternalIP]; ok {
			obs.externalIP = ip
		}
	}
	for _, p := range suspended {
		get(p.Key).suspended = true
	}
	for _, p := range statuses {
		obs := get(p.Key)
		obs.recorded = models.ParseStatus(p.Value)
		obs.recordedAt = p.Time
		obs.recordedExists = true
		if obs.externalIP == "" {
			obs.externalIP = p.Attrs[series.AttrExternalIP]
		}
	}
	return devices, nil
}

// effectiveStatus is the transition function evaluated fresh each tick.
// Suspension always wins, even over a seconds-old keepalive.
func effectiveStatus(obs *observation, now time.Time, timeout time.Duration) models.Status {
	switch {
	case obs.suspended:
		return models.StatusMaintenance
	case obs.keepaliveSeen && now.Sub(obs.lastKeepalive) <= timeout:
		return models.StatusUp
	case obs.keepaliveSeen:
		return models.StatusDown
	default:
		return models.StatusUnknown
	}
}

// apply decides whether the effective status must be persisted this tick:
// immediately on change, as a reaffirmation once the heartbeat interval has
// elapsed, or always when forced.
func (r *Reconciler) apply(ctx context.Context, mac string, obs *observation, effective models.Status, now time.Time, heartbeat time.Duration, force bool) error {
	changed := !obs.recordedExists || obs.recorded != effective
	heartbeatDue := obs.recordedExists && now.Sub(obs.recordedAt) >= heartbeat

	if !force && !changed && !heartbeatDue {
		return nil
	}

	attrs := map[string]string{}
	if obs.externalIP != "" {
		attrs[series.AttrExternalIP] = obs.externalIP
	}
	if err := r.store.Append(ctx, series.Point{
		Series: series.SeriesDeviceStatus,
		Key:    mac,
		Value:  string(effective),
		Attrs:  attrs,
		Time:   now,
	}); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.StatusWrites.WithLabelValues(string(effective)).Inc()
	}

	if changed {
		from := models.StatusUnknown
		if obs.recordedExists {
			from = obs.recorded
		}
		r.logger.Info("device status changed",
			zap.String("mac_address", mac),
			zap.String("from", string(from)),
			zap.String("to", string(effective)),
		)
		if r.bus != nil {
			r.bus.PublishAsync(ctx, event.Event{
				Topic:  event.TopicStatusChanged,
				Source: "watchdog",
				Payload: StatusChange{
					MACAddress: mac,
					ExternalIP: obs.externalIP,
					From:       from,
					To:         effective,
					At:         now,
				},
			})
		}
	}
	return nil
}
