// Package metrics registers Prometheus collectors for the watchdog loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watchdog holds the reconciliation loop's collectors.
type Watchdog struct {
	ReconcileTicks  prometheus.Counter
	ReconcileErrors prometheus.Counter
	StatusWrites    *prometheus.CounterVec
	DevicesTracked  prometheus.Gauge
}

// NewWatchdog registers the watchdog collectors on reg.
func NewWatchdog(reg prometheus.Registerer) *Watchdog {
	factory := promauto.With(reg)
	return &Watchdog{
		ReconcileTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "verinexus",
			Subsystem: "watchdog",
			Name:      "reconcile_ticks_total",
			Help:      "Completed reconciliation ticks.",
		}),
		ReconcileErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "verinexus",
			Subsystem: "watchdog",
			Name:      "reconcile_errors_total",
			Help:      "Per-device reconciliation failures (retried next tick).",
		}),
		StatusWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verinexus",
			Subsystem: "watchdog",
			Name:      "status_writes_total",
			Help:      "Status events appended, by status.",
		}, []string{"status"}),
		DevicesTracked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "verinexus",
			Subsystem: "watchdog",
			Name:      "devices_tracked",
			Help:      "Devices known via keepalive, suspension, or status history.",
		}),
	}
}
