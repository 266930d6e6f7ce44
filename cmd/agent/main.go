package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/VeriNexus/verinexus-speedtest/internal/agent"
	"github.com/VeriNexus/verinexus-speedtest/internal/config"
	"github.com/VeriNexus/verinexus-speedtest/internal/identity"
	"github.com/VeriNexus/verinexus-speedtest/internal/probe"
	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/settings"
	"github.com/VeriNexus/verinexus-speedtest/internal/store"
	"github.com/VeriNexus/verinexus-speedtest/internal/timesync"
	"github.com/VeriNexus/verinexus-speedtest/internal/version"
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

	logger.Info("VeriNexus agent starting", zap.String("version", version.Short()))

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
	snap := provider.Current()

	clock := timesync.NewClock(snap.NTPServer, cfg.ProbeTimeout, logger)
	if err := clock.Sync(); err != nil {
		logger.Warn("initial time sync failed, using local clock", zap.Error(err))
	}

	resolver := identity.NewResolver(cfg.IPEndpoint, cfg.ProbeTimeout, logger)
	id := resolver.Detect(ctx)

	a := agent.New(ts, provider, probe.New(cfg.ProbeTimeout, logger), id, logger,
		agent.WithClock(clock.Now),
	)

	go provider.Run(ctx, cfg.SettingsRefresh)
	go clock.Run(ctx, cfg.TimeSyncInterval)

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.Error("agent loop error", zap.Error(err))
		}
	}

	logger.Info("VeriNexus agent stopped")
}
