// Package series models the shared store as a tag-indexed append log.
// It is the only channel through which the agent and the watchdog
// communicate: two read primitives (last value per key, values in a time
// range) and two write primitives (append, replace) so the underlying
// store is swappable.
package series

import (
	"context"
	"time"
)

// Series names used by the liveness protocol.
const (
	SeriesKeepalive    = "keepalive"
	SeriesDeviceStatus = "device_status"
	SeriesSuspended    = "suspended_devices"
	SeriesSettings     = "settings"
)

// Well-known attribute tags carried alongside points.
const (
	AttrExternalIP = "external_ip"
	AttrLocalIP    = "local_ip"
)

// Point is a single tagged value in a series. Key is the partition tag
// (device MAC address for the liveness series, setting name for settings);
// devices never contend with each other because the store partitions by it.
type Point struct {
	Series string
	Key    string
	Value  string
	Attrs  map[string]string
	Time   time.Time
}

// Store is the narrow query and write surface the core consumes.
type Store interface {
	// Last returns the most recent point for every key in the series,
	// tie-broken by insertion order.
	Last(ctx context.Context, series string) ([]Point, error)

	// Range returns all points for one key with Time in [from, to),
	// sorted ascending by time then insertion order.
	Range(ctx context.Context, series, key string, from, to time.Time) ([]Point, error)

	// Append inserts a point, leaving prior points for the key in place.
	Append(ctx context.Context, p Point) error

	// Replace deletes all prior points for the point's key and inserts the
	// new one, so the series holds exactly one current row per key.
	Replace(ctx context.Context, p Point) error
}
