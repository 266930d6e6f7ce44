package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/uptime"
	"github.com/VeriNexus/verinexus-speedtest/pkg/models"
	"go.uber.org/zap"
)

// Handlers holds the read-only API handlers over the shared store.
type Handlers struct {
	store  series.Store
	calc   *uptime.Calculator
	logger *zap.Logger

	now func() time.Time // Injectable for tests.
}

// NewHandlers creates the API handlers.
func NewHandlers(store series.Store, calc *uptime.Calculator, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:  store,
		calc:   calc,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// uptimeResponse reports a device's uptime over the standard windows plus
// an optional caller-supplied one.
type uptimeResponse struct {
	MACAddress    string   `json:"mac_address"`
	LastHour      float64  `json:"uptime_last_hour"`
	LastDay       float64  `json:"uptime_last_day"`
	LastMonth     float64  `json:"uptime_last_month"`
	WindowSeconds int      `json:"window_seconds,omitempty"`
	Window        *float64 `json:"uptime_window,omitempty"`
}

// handleListDevices returns every known device with its latest status,
// keepalive recency, and suspension flag.
func (h *Handlers) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses, err := h.store.Last(ctx, series.SeriesDeviceStatus)
	if err != nil {
		h.logger.Warn("failed to list statuses", zap.Error(err))
		InternalError(w, "failed to read device statuses", r.URL.Path)
		return
	}
	keepalives, err := h.store.Last(ctx, series.SeriesKeepalive)
	if err != nil {
		h.logger.Warn("failed to list keepalives", zap.Error(err))
		InternalError(w, "failed to read keepalives", r.URL.Path)
		return
	}
	suspended, err := h.store.Last(ctx, series.SeriesSuspended)
	if err != nil {
		h.logger.Warn("failed to list suspensions", zap.Error(err))
		InternalError(w, "failed to read suspensions", r.URL.Path)
		return
	}

	byMAC := make(map[string]*models.Device)
	get := func(mac string) *models.Device {
		if d, ok := byMAC[mac]; ok {
			return d
		}
		d := &models.Device{MACAddress: mac, Status: models.StatusUnknown}
		byMAC[mac] = d
		return d
	}

	for _, p := range statuses {
		d := get(p.Key)
		d.Status = models.ParseStatus(p.Value)
		d.ExternalIP = p.Attrs[series.AttrExternalIP]
	}
	for _, p := range keepalives {
		d := get(p.Key)
		d.LastSeen = p.Time
		if ip, ok := p.Attrs[series.AttrExternalIP]; ok {
			d.ExternalIP = ip
		}
		if ip, ok := p.Attrs[series.AttrLocalIP]; ok {
			d.LocalIP = ip
		}
	}
	for _, p := range suspended {
		get(p.Key).Suspended = true
	}

	devices := make([]models.Device, 0, len(byMAC))
	for _, d := range byMAC {
		devices = append(devices, *d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].MACAddress < devices[j].MACAddress
	})

	writeJSON(w, http.StatusOK, devices)
}

// handleDeviceUptime returns uptime percentages for one device. An optional
// window query parameter (seconds) adds a caller-defined lookback.
func (h *Handlers) handleDeviceUptime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mac := r.PathValue("mac")
	if mac == "" {
		BadRequest(w, "mac is required", r.URL.Path)
		return
	}

	now := h.now()
	resp := uptimeResponse{MACAddress: mac}

	for _, win := range []struct {
		d    time.Duration
		dest *float64
	}{
		{uptime.WindowHour, &resp.LastHour},
		{uptime.WindowDay, &resp.LastDay},
		{uptime.WindowMonth, &resp.LastMonth},
	} {
		pct, err := h.calc.Percent(ctx, mac, now.Add(-win.d), now)
		if err != nil {
			h.logger.Warn("uptime computation failed",
				zap.String("mac_address", mac),
				zap.Duration("window", win.d),
				zap.Error(err),
			)
			InternalError(w, "failed to compute uptime", r.URL.Path)
			return
		}
		*win.dest = pct
	}

	if raw := r.URL.Query().Get("window"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			BadRequest(w, "window must be a positive integer of seconds", r.URL.Path)
			return
		}
		pct, err := h.calc.Percent(ctx, mac, now.Add(-time.Duration(secs)*time.Second), now)
		if err != nil {
			h.logger.Warn("uptime computation failed",
				zap.String("mac_address", mac),
				zap.Int("window_seconds", secs),
				zap.Error(err),
			)
			InternalError(w, "failed to compute uptime", r.URL.Path)
			return
		}
		resp.WindowSeconds = secs
		resp.Window = &pct
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
