// Package main provides the entry point for the paper assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/assets"
	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/config"
	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/events"
	"github.com/helixir/paper-assistant-service/internal/observability"
	"github.com/helixir/paper-assistant-service/internal/render"
	httpserver "github.com/helixir/paper-assistant-service/internal/server/http"
	"github.com/helixir/paper-assistant-service/internal/service"
	"github.com/helixir/paper-assistant-service/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Str("environment", cfg.App.Environment).Msg("paper-assistant-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Upload storage and figure resolution.
	store, resolver, err := buildStorage(cfg, logger)
	if err != nil {
		return err
	}

	placement, err := compose.ParsePlacementPolicy(cfg.Compose.PlacementPolicy)
	if err != nil {
		return fmt.Errorf("compose config: %w", err)
	}
	composer := compose.NewComposer(resolver, compose.Options{
		Placement:     placement,
		StrictFigures: cfg.Compose.StrictFigures,
	}, logger)

	// PDF renderer. Without one, PDF downloads answer 503.
	var renderer render.Renderer
	if cfg.Renderer.BaseURL != "" {
		client, err := render.NewClient(render.Config{
			BaseURL:           cfg.Renderer.BaseURL,
			Timeout:           cfg.Renderer.Timeout,
			RateLimit:         cfg.Renderer.RateLimit,
			Burst:             cfg.Renderer.Burst,
			MaxRetries:        cfg.Renderer.MaxRetries,
			RetryDelay:        cfg.Renderer.RetryDelay,
			RetryServerErrors: cfg.Renderer.RetryServerErrors,
		}, logger)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		renderer = client
	} else {
		logger.Warn().Msg("renderer base URL not set, PDF generation disabled")
	}

	// Event publisher.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		publisher = kp
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("paper_assistant")
	}

	papers, err := service.New(service.Deps{
		DB:        db,
		Tx:        db,
		Store:     store,
		Composer:  composer,
		Renderer:  renderer,
		Emitter:   events.NewEmitter(events.EmitterConfig{ServiceName: cfg.App.Name}),
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create paper service: %w", err)
	}

	httpCfg := httpserver.Config{
		Address:      cfg.Server.HTTPAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
		Environment:  cfg.App.Environment,
		MaxFileBytes: cfg.Storage.MaxFileBytes,
		MaxFiles:     cfg.Storage.MaxFiles,
	}
	httpSrv := httpserver.NewServer(httpCfg, papers, db, metrics, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Str("storage_backend", cfg.Storage.Backend)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-assistant-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-assistant-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-assistant-service shutdown complete")
	return nil
}

// buildStorage creates the upload store for the configured backend and the
// asset resolver that reads figures back for composition.
func buildStorage(cfg *config.Config, logger zerolog.Logger) (storage.FileStore, *assets.Resolver, error) {
	resolverCfg := assets.Config{UploadsRoot: cfg.Storage.UploadsRoot}

	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		s3Cfg := storage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			KeyPrefix: cfg.Storage.S3.KeyPrefix,
			AccessKey: cfg.Storage.S3.AccessKeyID,
			SecretKey: cfg.Storage.S3.SecretAccessKey,
		}
		sess, err := storage.NewS3Session(s3Cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewS3Store(s3.New(sess), s3Cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create s3 store: %w", err)
		}
		logger.Info().Str("bucket", s3Cfg.Bucket).Msg("using s3 upload storage")
		// Legacy files on local disk are still found before the bucket is consulted.
		return store, assets.NewResolver(resolverCfg, assets.WithObjectStore(store), assets.WithLogger(logger)), nil

	default:
		store, err := storage.NewLocalStore(cfg.Storage.UploadsRoot, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create local store: %w", err)
		}
		logger.Info().Str("root", store.Root()).Msg("using local upload storage")
		return store, assets.NewResolver(resolverCfg, assets.WithLogger(logger)), nil
	}
}
