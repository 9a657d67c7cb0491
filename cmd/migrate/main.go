package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/config"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/db"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
)

type mode int

const (
	modeApply mode = iota
	modeStatus
)

var errUsage = errors.New("exactly one of --apply or --status is required")

func main() {
	m, err := parseMode(os.Args[1:])
	if err != nil {
		log.Printf("usage: migrate --apply | --status: %v", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment, cfg.Telemetry.ServiceVersion)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	err = run(cfg.Database, logger, m)
	if err != nil {
		logger.Error("migration job failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func parseMode(args []string) (mode, error) {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	apply := fs.Bool("apply", false, "apply pending migrations")
	status := fs.Bool("status", false, "list pending migrations without applying them")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}

	if *apply == *status {
		return 0, errUsage
	}
	if *status {
		return modeStatus, nil
	}
	return modeApply, nil
}

func run(cfg config.Database, logger *zap.Logger, m mode) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	migrator := db.NewMigrator(database, logger)

	if m == modeStatus {
		pending, err := migrator.Pending(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		logger.Info("migration status", zap.Int("pending", len(pending)), zap.Strings("names", pending))
		return nil
	}

	applied, err := migrator.Apply(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migrations applied", zap.Int("count", len(applied)), zap.Strings("names", applied))
	return nil
}
