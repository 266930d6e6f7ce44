// Package probe performs bounded reachability checks against the configured
// target. Literal IP targets are checked with ICMP echo, anything else is
// treated as an HTTP(S) endpoint. Ambiguity degrades safely: a target that
// cannot be classified reports unreachable.
package probe

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Probe runs reachability checks with a fixed per-check timeout.
type Probe struct {
	timeout time.Duration
	logger  *zap.Logger
	client  *http.Client
}

// New creates a Probe. Every check is bounded by timeout regardless of
// target type.
func New(timeout time.Duration, logger *zap.Logger) *Probe {
	return &Probe{
		timeout: timeout,
		logger:  logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check reports whether the target is reachable. It never blocks longer
// than the configured timeout.
func (p *Probe) Check(ctx context.Context, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if net.ParseIP(target) != nil {
		return p.checkICMP(ctx, target)
	}
	return p.checkHTTP(ctx, target)
}

// checkICMP sends a single ICMP echo to the target.
func (p *Probe) checkICMP(ctx context.Context, target string) bool {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		p.logger.Debug("create pinger failed", zap.String("target", target), zap.Error(err))
		return false
	}

	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	// Run pinger in a goroutine for context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			p.logger.Debug("ping failed", zap.String("target", target), zap.Error(runErr))
			return false
		}
		return pinger.Statistics().PacketsRecv > 0
	case <-ctx.Done():
		pinger.Stop()
		return false
	}
}

// checkHTTP performs a GET against the target URL. Connection failures,
// timeouts, and non-success responses all classify as unreachable.
func (p *Probe) checkHTTP(ctx context.Context, target string) bool {
	u, err := url.Parse(normalizeURL(target))
	if err != nil || u.Scheme == "" || u.Host == "" {
		p.logger.Debug("unparseable probe target", zap.String("target", target))
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("http probe failed", zap.String("target", target), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// normalizeURL defaults bare hosts to http so "example.com" probes as
// "http://example.com".
func normalizeURL(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return "http://" + target
}
