// Package agent implements the device-side loop: once per keepalive period
// it probes connectivity and, on success, publishes a single fresh liveness
// record for this device, superseding any prior one.
package agent

import (
	"context"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/identity"
	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/settings"
	"go.uber.org/zap"
)

// Checker is the reachability check the agent gates keepalives on.
type Checker interface {
	Check(ctx context.Context, target string) bool
}

// Agent emits keepalives for one device identity.
type Agent struct {
	store    series.Store
	provider *settings.Provider
	checker  Checker
	id       identity.Identity
	logger   *zap.Logger

	now func() time.Time // Injectable for tests.
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock overrides the agent's time source, normally the NTP-adjusted
// clock.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates an Agent for the given device identity.
func New(store series.Store, provider *settings.Provider, checker Checker, id identity.Identity, logger *zap.Logger, opts ...Option) *Agent {
	a := &Agent{
		store:    store,
		provider: provider,
		checker:  checker,
		id:       id,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run emits keepalives until ctx is cancelled. The first emission happens
// immediately so a restarted device reappears without waiting a full period.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("keepalive agent starting",
		zap.String("mac_address", a.id.MACAddress),
		zap.String("external_ip", a.id.ExternalIP),
	)

	a.Emit(ctx)

	timer := time.NewTimer(a.provider.Current().KeepalivePeriod)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("keepalive agent stopped")
			return nil
		case <-timer.C:
			a.Emit(ctx)
			// Period is re-read each cycle so a settings refresh takes
			// effect without restart.
			timer.Reset(a.provider.Current().KeepalivePeriod)
		}
	}
}

// Emit performs one keepalive cycle. When the connectivity probe fails the
// record is deliberately not written: absence of a fresh keepalive is the
// unreachability signal the watchdog acts on. Store failures are logged and
// retried on the next cycle.
func (a *Agent) Emit(ctx context.Context) {
	snap := a.provider.Current()

	if !a.checker.Check(ctx, snap.ProbeTarget) {
		a.logger.Warn("connectivity probe failed, skipping keepalive",
			zap.String("target", snap.ProbeTarget),
		)
		return
	}

	p := series.Point{
		Series: series.SeriesKeepalive,
		Key:    a.id.MACAddress,
		Value:  a.id.MACAddress,
		Attrs: map[string]string{
			series.AttrExternalIP: a.id.ExternalIP,
			series.AttrLocalIP:    a.id.LocalIP,
		},
		Time: a.now(),
	}

	if err := a.store.Replace(ctx, p); err != nil {
		a.logger.Warn("keepalive write failed", zap.Error(err))
		return
	}

	a.logger.Debug("keepalive published",
		zap.String("mac_address", a.id.MACAddress),
		zap.Time("timestamp", p.Time),
	)
}
