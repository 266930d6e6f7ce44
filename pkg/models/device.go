package models

import (
	"strings"
	"time"
)

// Status represents the inferred operational state of a monitored device.
type Status string

const (
	StatusUp          Status = "up"
	StatusDown        Status = "down"
	StatusMaintenance Status = "maintenance"
	StatusUnknown     Status = "unknown"
)

// Valid reports whether s is one of the recognized status values.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusMaintenance, StatusUnknown:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status, mapping anything
// unrecognized to StatusUnknown. Input is normalized; stored values may
// carry whitespace or mixed case from older writers.
func ParseStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return StatusUnknown
	}
	return s
}

// Device represents a monitored field device. Devices are created implicitly
// the first time a keepalive or status event referencing them appears; the
// MAC address is the only primary key used throughout.
type Device struct {
	MACAddress string    `json:"mac_address"`
	ExternalIP string    `json:"external_ip,omitempty"`
	LocalIP    string    `json:"local_ip,omitempty"`
	Suspended  bool      `json:"suspended"`
	Status     Status    `json:"status"`
	LastSeen   time.Time `json:"last_seen"`
}

// Keepalive is the short-lived liveness signal a device publishes each cycle.
// Exactly one logically current record per device is meaningful.
type Keepalive struct {
	MACAddress string    `json:"mac_address"`
	ExternalIP string    `json:"external_ip,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusEvent is an immutable, timestamped record of a device's inferred
// state. The most recent event for a device is the system's authoritative
// belief about that device.
type StatusEvent struct {
	MACAddress string    `json:"mac_address"`
	ExternalIP string    `json:"external_ip,omitempty"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}
