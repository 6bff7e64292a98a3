// Package app wires configuration, storage, messaging, and the HTTP transport
// into a runnable user service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playtube/user-service/internal/auth"
	"github.com/playtube/user-service/internal/config"
	"github.com/playtube/user-service/internal/event"
	httphandler "github.com/playtube/user-service/internal/handler/http"
	"github.com/playtube/user-service/internal/repository/postgres"
	"github.com/playtube/user-service/internal/service"
	"github.com/playtube/user-service/migrations"
	"github.com/playtube/user-service/pkg/database"
	"github.com/playtube/user-service/pkg/health"
	pkgkafka "github.com/playtube/user-service/pkg/kafka"
	"github.com/playtube/user-service/pkg/tracing"
)

const serviceName = "user-service"

// App holds the assembled service and its owned resources.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	producer *pkgkafka.Producer
	server   *http.Server

	tracerShutdown func(context.Context) error
}

// New builds the application: connects the database, runs migrations, starts
// the Kafka producer, and assembles the HTTP router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	database.RegisterPoolMetrics(pool, serviceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)

	codec := auth.NewTokenCodec(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL(),
		cfg.RefreshTokenTTL(),
	)

	userRepo := postgres.NewUserRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	authService := service.NewAuthService(userRepo, codec, eventProducer, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := httphandler.NewRouter(httphandler.RouterConfig{
		AuthHandler:   httphandler.NewAuthHandler(authService, codec, cfg.SecureCookies, logger),
		UserHandler:   httphandler.NewUserHandler(authService, logger),
		HealthHandler: healthHandler,
		Codec:         codec,
		CORS: httphandler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		server:         server,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts everything down in dependency order.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Stop accepting traffic first, then drain the outbound producer, then
	// release the pool.
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown", slog.String("error", err.Error()))
	}

	a.logger.Info("shutdown complete")
	return nil
}
