// Package identity resolves the attributes a device reports about itself:
// its stable MAC address (the primary key used throughout), its local
// address, and its last known external address.
package identity

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Unknown is reported when an attribute cannot be determined. Identity
// resolution never fails hard; a device with no resolvable address still
// participates in the liveness protocol.
const Unknown = "unknown"

// DefaultIPEndpoint returns the caller's public address as a plain-text body.
const DefaultIPEndpoint = "https://api.ipify.org"

// Identity holds the resolved device attributes.
type Identity struct {
	MACAddress string
	LocalIP    string
	ExternalIP string
}

// Resolver detects device identity attributes.
type Resolver struct {
	ipEndpoint string
	client     *http.Client
	logger     *zap.Logger
}

// NewResolver creates a Resolver. ipEndpoint may be empty to use
// DefaultIPEndpoint.
func NewResolver(ipEndpoint string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if ipEndpoint == "" {
		ipEndpoint = DefaultIPEndpoint
	}
	return &Resolver{
		ipEndpoint: ipEndpoint,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Detect resolves all identity attributes. Each attribute degrades to
// Unknown independently.
func (r *Resolver) Detect(ctx context.Context) Identity {
	mac, local := interfaceAddrs()
	id := Identity{
		MACAddress: mac,
		LocalIP:    local,
		ExternalIP: r.externalIP(ctx),
	}
	if id.MACAddress == Unknown {
		r.logger.Warn("no usable network interface for MAC address")
	}
	return id
}

// externalIP asks the configured endpoint for the device's public address.
func (r *Resolver) externalIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ipEndpoint, nil)
	if err != nil {
		return Unknown
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("external IP lookup failed", zap.Error(err))
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("external IP lookup rejected", zap.Int("status", resp.StatusCode))
		return Unknown
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return Unknown
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return Unknown
	}
	return ip
}

// interfaceAddrs picks the first up, non-loopback interface that has both a
// hardware address and an IPv4 address.
func interfaceAddrs() (mac, local string) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return Unknown, Unknown
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			return iface.HardwareAddr.String(), ipNet.IP.String()
		}
	}
	return Unknown, Unknown
}
