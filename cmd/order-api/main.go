package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	"github.com/cassiomorais/ordersaga/internal/bootstrap"
	"github.com/cassiomorais/ordersaga/internal/controller"
	"github.com/cassiomorais/ordersaga/internal/dispatcher"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "order-api", "ordersaga_api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	retryRepo := postgres.NewRetryRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Event dispatcher ---
	disp := dispatcher.New(app.Logger)
	disp.Register(event.TypePaymentRequested, func(ctx context.Context, e event.Event) error {
		requested, ok := e.(event.PaymentRequested)
		if !ok {
			return nil
		}
		app.Logger.Info().
			Str("order_id", requested.OrderID.String()).
			Int64("amount_cents", requested.AmountCents).
			Str("currency", requested.Currency).
			Msg("Payment requested, awaiting first scheduler tick")
		return nil
	})

	// --- Use cases ---
	createOrderUC := orderApp.NewCreateOrderUseCase(orderRepo, retryRepo, txManager, disp, app.Config.Saga.MaxAttempts)
	getOrderUC := orderApp.NewGetOrderUseCase(orderRepo, retryRepo)
	statisticsUC := orderApp.NewGetStatisticsUseCase(retryRepo)
	findStaleUC := orderApp.NewFindStaleUseCase(retryRepo, app.Config.Saga.StalenessThreshold)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:          app.Pool,
		RedisClient:   app.Redis,
		CreateOrderUC: createOrderUC,
		GetOrderUC:    getOrderUC,
		StatisticsUC:  statisticsUC,
		FindStaleUC:   findStaleUC,
		Metrics:       app.Metrics,
		ServerConfig:  app.Config.Server,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
