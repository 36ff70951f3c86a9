package controller

import (
	"time"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/config"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/ordersaga/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool          *pgxpool.Pool
	RedisClient   *redis.Client
	CreateOrderUC *orderApp.CreateOrderUseCase
	GetOrderUC    *orderApp.GetOrderUseCase
	StatisticsUC  *orderApp.GetStatisticsUseCase
	FindStaleUC   *orderApp.FindStaleUseCase
	Metrics       *observability.Metrics
	ServerConfig  config.ServerConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	orderH := NewOrderController(deps.CreateOrderUC, deps.GetOrderUC)
	retryH := NewRetryController(deps.StatisticsUC, deps.FindStaleUC)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(deps.ServerConfig.RateLimitPerMin))

		// Orders
		r.Post("/orders", orderH.Create)
		r.Get("/orders/{id}", orderH.Get)

		// Retry diagnostics
		r.Get("/retries/statistics", retryH.Statistics)
		r.Get("/retries/stale", retryH.Stale)
	})

	return r
}
