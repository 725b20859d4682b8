package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"go.uber.org/zap"

	"github.com/gmsas95/medtrack-cli/internal/api"
	"github.com/gmsas95/medtrack-cli/internal/config"
	"github.com/gmsas95/medtrack-cli/internal/events"
	"github.com/gmsas95/medtrack-cli/internal/metrics"
	"github.com/gmsas95/medtrack-cli/internal/registry"
	"github.com/gmsas95/medtrack-cli/internal/store"
	"github.com/gmsas95/medtrack-cli/internal/sweep"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("medtrack version %s\n", version)
			return
		}
	}

	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Write a starter config on first interactive run so there is a file to
	// edit.
	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = filepath.Join(cfg.Storage.DataDir, "medtrack.yaml")
	}
	if _, statErr := os.Stat(cfgFile); os.IsNotExist(statErr) && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := config.WriteFile(cfg, cfgFile); err != nil {
			logger.Warn("Failed to write starter config", zap.Error(err))
		} else {
			fmt.Printf("Wrote default configuration to %s\n", cfgFile)
		}
	}

	st, err := store.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer st.Close()

	m := metrics.New()
	bus := events.NewBus(logger)
	defer bus.Close()

	reg := registry.New(st, bus, m, registry.Options{
		GracePeriod:     cfg.GracePeriod(),
		RecentLogWindow: cfg.RecentLogWindow(),
		AdherenceWindow: time.Duration(cfg.Engine.AdherenceWindowDays) * 24 * time.Hour,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := reg.Load(ctx); err != nil {
		logger.Fatal("Failed to load medications", zap.Error(err))
	}

	sweeper := sweep.New(reg, m, cfg.Engine.SweepInterval, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	server := api.New(cfg, reg, sweeper, bus, m, logger)

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.Int("port", cfg.Server.Port),
			zap.String("version", version))
		if err := server.Start(); err != nil {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
