package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/cassiomorais/ordersaga/internal/infrastructure/config"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App carries the shared infrastructure every binary needs. The order API,
// the scheduler and the payment worker all bootstrap through New so config,
// logging and the two backing stores are wired identically across processes.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(serviceName, cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Msg("Starting")

	initTracing(ctx, serviceName, cfg, logger)

	metrics := observability.NewMetrics(metricsNamespace, nil)
	logger.Info().Msg("Metrics initialized")

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	}, nil
}

// initTracing is best effort. A missing Jaeger endpoint degrades to running
// without spans rather than failing startup.
func initTracing(ctx context.Context, serviceName string, cfg *config.Config, logger zerolog.Logger) {
	if !cfg.Observability.EnableTracing {
		return
	}

	tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		return
	}

	go func() {
		<-ctx.Done()
		observability.Shutdown(context.Background(), tp)
	}()
	logger.Info().Msg("Tracing enabled")
}

func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}
