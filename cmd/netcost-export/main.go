package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"netcost/internal/backend"
	"netcost/internal/config"
	"netcost/internal/export"
	applog "netcost/internal/log"
	"netcost/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	locationID := flag.String("location", "", "location to project (required)")
	proposalID := flag.String("proposal", "", "proposal to overlay on the location")
	timeout := flag.Duration("timeout", 60*time.Second, "overall export timeout")
	flag.Parse()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: "netcost-export",
	})
	applog.SetDefault(logger)

	if *locationID == "" {
		logger.Error("Missing required -location flag")
		flag.Usage()
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "type", backendCfg.Type)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	exporter, err := export.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}

	projector := services.NewProjectionService(result.Backend, result.Backend, cfg.HorizonMonths)

	points, err := projector.ProjectLocation(ctx, *locationID, *proposalID)
	if err != nil {
		logger.Error("Projection failed", "error", err,
			"location_id", *locationID, "proposal_id", *proposalID)
		os.Exit(1)
	}

	if err := exporter.WriteProjection(ctx, *locationID, points); err != nil {
		logger.Error("Export failed", "error", err, "location_id", *locationID)
		os.Exit(1)
	}

	logger.Info("Export complete",
		"location_id", *locationID,
		"proposal_id", *proposalID,
		"months", len(points))
}
