package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/raffle/app"
	"github.com/Black-And-White-Club/raffle/config"
	"github.com/Black-And-White-Club/raffle/pkg/observability"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:     "raffle",
		Environment:     cfg.Observability.Environment,
		Version:         version,
		LogLevel:        cfg.Observability.LogLevel,
		OTLPEndpoint:    cfg.Observability.OTLPEndpoint,
		OTLPInsecure:    cfg.Observability.OTLPInsecure,
		TraceSampleRate: cfg.Observability.TraceSampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}

	logger := obs.Provider.Logger
	logger.Info("Starting raffle")

	application, err := app.NewApp(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("Application stopped with error", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to flush traces", "error", err)
	}

	logger.Info("Raffle stopped")
	if runErr != nil {
		os.Exit(1)
	}
}
