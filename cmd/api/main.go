package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/auth"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/config"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/db"
	httpserver "github.com/WailSalutem-Health-Care/clinic-service/internal/http"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/telemetry"
)

const jwksRefreshInterval = 10 * time.Minute

func main() {
	migrate, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment, cfg.Telemetry.ServiceVersion)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	// run owns every other resource, so its defers have finished before exit.
	err = run(cfg, logger, migrate)
	if err != nil {
		logger.Error("clinic-service stopped", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// parseFlags reads the command line. --migrate applies pending migrations
// before serving.
func parseFlags(args []string) (bool, error) {
	fs := pflag.NewFlagSet("clinic-service", pflag.ContinueOnError)
	migrate := fs.Bool("migrate", false, "apply pending database migrations before serving")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	return *migrate, nil
}

func run(cfg *config.Config, logger *zap.Logger, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitProvider(ctx, cfg.Telemetry, cfg.Environment, logger)
	if err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			provider.Shutdown(shutdownCtx)
		}()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("custom metrics disabled", zap.Error(err))
		metrics = nil
	}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if migrate {
		applied, err := db.NewMigrator(database, logger).Apply(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("migrations applied", zap.Strings("names", applied))
	}

	deps := httpserver.Dependencies{
		DB:          database,
		Metrics:     metrics,
		Logger:      logger,
		ServiceName: cfg.Telemetry.ServiceName,
	}

	if cfg.RabbitMQ.Enabled {
		publisher, err := messaging.NewPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Warn("continuing without event publishing", zap.Error(err))
		} else {
			defer publisher.Close()
			deps.Publisher = publisher
		}
	}

	if cfg.Auth.Enabled {
		keys, err := auth.NewJWKS(ctx, cfg.Auth.JWKSURL, jwksRefreshInterval, logger)
		if err != nil {
			return fmt.Errorf("failed to load JWKS: %w", err)
		}
		defer keys.Close()

		perms, err := auth.LoadPermissions(cfg.Auth.PermissionsFile)
		if err != nil {
			return fmt.Errorf("failed to load permissions: %w", err)
		}

		deps.Verifier = auth.NewVerifier(cfg.Auth, keys)
		deps.Permissions = perms
	}

	router := httpserver.SetupRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      httpserver.CORSMiddleware(cfg.AllowedOrigins)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.Int("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.Bool("auth_enabled", cfg.Auth.Enabled),
			zap.Bool("rabbitmq_enabled", deps.Publisher != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
