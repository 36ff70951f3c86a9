package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	paymentApp "github.com/cassiomorais/ordersaga/internal/application/payment"
	"github.com/cassiomorais/ordersaga/internal/bootstrap"
	"github.com/cassiomorais/ordersaga/internal/dispatcher"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/cassiomorais/ordersaga/internal/providers"
	"github.com/cassiomorais/ordersaga/internal/relay"
	"github.com/cassiomorais/ordersaga/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

const defaultProvider = "stripe"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payment-worker", "ordersaga_payment")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	providerFactory := providers.NewFactory(app.Metrics)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	// --- Use cases ---
	processPaymentUC := paymentApp.NewProcessPaymentUseCase(
		paymentRepo,
		txManager,
		dispatcher.NewPublisher(outboxRepo, app.Logger),
		providerFactory,
		defaultProvider,
		app.Logger,
	)

	// --- Outbox relay ---
	workerCfg := app.Config.Worker
	outboxRelay := relay.New(outboxRepo, txManager, streamProducer, relay.Config{
		PollInterval: workerCfg.OutboxPollInterval,
		BatchSize:    workerCfg.OutboxBatchSize,
		Retention:    workerCfg.OutboxRetention,
	}, app.Metrics, app.Logger)

	app.Logger.Info().
		Str("stream", infraRedis.PaymentRequestStream).
		Str("group", workerCfg.ConsumerGroup).
		Int("consumers", workerCfg.Consumers).
		Msg("Worker started, listening for payment requests...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Payment request consumers (read from Redis Streams).
	handler := messaging.RequestHandler(processPaymentUC, app.Logger)
	for i := 0; i < workerCfg.Consumers; i++ {
		consumerName := fmt.Sprintf("%s-%d", app.Config.InstanceID, i)
		consumer := infraRedis.NewStreamConsumer(
			app.Redis,
			infraRedis.PaymentRequestStream,
			workerCfg.ConsumerGroup,
			consumerName,
			workerCfg.BatchSize,
			workerCfg.BlockDuration,
		)
		listener := messaging.NewListener(consumer, handler, app.Metrics, app.Logger)
		g.Go(func() error {
			return listener.Run(gCtx)
		})
	}

	// 2. Outbox relay (polls outbox table, publishes saga replies).
	g.Go(func() error {
		return outboxRelay.Run(gCtx)
	})

	// 3. Outbox retention cleanup.
	g.Go(func() error {
		return outboxRelay.RunCleanup(gCtx)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
