package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/api"
	"github.com/fleetradar/fleetradar-backend/internal/auth"
	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/fleetradar/fleetradar-backend/internal/mq"
	"github.com/fleetradar/fleetradar-backend/internal/notehub"
	"github.com/fleetradar/fleetradar-backend/internal/repository"
	"github.com/fleetradar/fleetradar-backend/internal/telemetry"
	"github.com/fleetradar/fleetradar-backend/internal/vehicle"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, router http.Handler) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http server", zap.Int("port", cfg.HTTPPort))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideNotehubClient creates a new Notehub API client
func ProvideNotehubClient(cfg *config.Config, logger *zap.Logger) *notehub.Client {
	return notehub.NewClient(cfg.Notehub, logger)
}

// ProvideTokenIssuer creates a new JWT token issuer
func ProvideTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

// ProvideAuthService creates a new authentication service
func ProvideAuthService(repo *repository.Repository, tokens *auth.TokenIssuer, cfg *config.Config, logger *zap.Logger) *auth.Service {
	return auth.NewService(repo, tokens, cfg, logger)
}

// ProvideVehicleService creates a new vehicle service
func ProvideVehicleService(repo *repository.Repository, logger *zap.Logger) *vehicle.Service {
	return vehicle.NewService(repo, logger)
}

// ProvideTelemetryService creates a new telemetry service
func ProvideTelemetryService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	commands *notehub.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *telemetry.Service {
	return telemetry.NewService(repo, repo, publisher, commands, cfg, logger)
}

// ProvideHandlers creates the HTTP handler set
func ProvideHandlers(
	authSvc *auth.Service,
	vehicles *vehicle.Service,
	telemetrySvc *telemetry.Service,
	logger *zap.Logger,
) *api.Handlers {
	return api.NewHandlers(authSvc, vehicles, telemetrySvc, logger)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(cfg *config.Config, tokens *auth.TokenIssuer, handlers *api.Handlers, logger *zap.Logger) http.Handler {
	return api.NewRouter(cfg, tokens, handlers, logger)
}
