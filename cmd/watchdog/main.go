package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/api"
	"github.com/VeriNexus/verinexus-speedtest/internal/config"
	"github.com/VeriNexus/verinexus-speedtest/internal/event"
	"github.com/VeriNexus/verinexus-speedtest/internal/metrics"
	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/settings"
	"github.com/VeriNexus/verinexus-speedtest/internal/store"
	"github.com/VeriNexus/verinexus-speedtest/internal/uptime"
	"github.com/VeriNexus/verinexus-speedtest/internal/version"
	"github.com/VeriNexus/verinexus-speedtest/internal/watchdog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("VeriNexus watchdog starting", zap.String("version", version.Short()))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// No store means no coordination medium; refuse to run without one.
	db, err := store.Open(cfg.StorePath)
	if err != nil {
		logger.Fatal("failed to open shared store", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts, err := series.NewSQLiteStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize series store", zap.Error(err))
	}

	provider := settings.NewProvider(ts, logger)
	if _, err := provider.Load(ctx); err != nil {
		logger.Warn("settings load failed, using defaults", zap.Error(err))
	}

	bus := event.NewBus(logger)
	// Alert delivery is an external consumer; the bus subscription is its
	// integration point. Log transitions so operators see them regardless.
	bus.Subscribe(event.TopicStatusChanged, func(_ context.Context, e event.Event) {
		if change, ok := e.Payload.(watchdog.StatusChange); ok {
			logger.Info("status transition",
				zap.String("mac_address", change.MACAddress),
				zap.String("from", string(change.From)),
				zap.String("to", string(change.To)),
			)
		}
	})

	registry := prometheus.NewRegistry()
	wdMetrics := metrics.NewWatchdog(registry)

	reconciler := watchdog.New(ts, provider, bus, cfg.WatchdogTick, logger,
		watchdog.WithMetrics(wdMetrics),
	)

	handlers := api.NewHandlers(ts, uptime.NewCalculator(ts), logger)
	srv := api.New(cfg.ListenAddr, handlers, map[string]http.Handler{
		"GET /metrics": promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, logger)

	go provider.Run(ctx, cfg.SettingsRefresh)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- reconciler.Run(ctx)
	}()

	logger.Info("VeriNexus watchdog ready", zap.String("addr", cfg.ListenAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Cancelling the loop triggers the reconciler's final forced flush;
	// wait for it before shutting down the HTTP server.
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("VeriNexus watchdog stopped")
}
