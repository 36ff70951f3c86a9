package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/ordersaga/internal/bootstrap"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/cassiomorais/ordersaga/internal/repository/postgres"
	"github.com/cassiomorais/ordersaga/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

const leaderLockKey = "scheduler:leader"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "order-scheduler", "ordersaga_scheduler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	retryRepo := postgres.NewRetryRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	sagaCfg := app.Config.Saga
	workerCfg := app.Config.Worker

	// --- Retry scheduler ---
	producer := infraRedis.NewStreamProducer(app.Redis)
	sender := messaging.NewRequestPublisher(producer, sagaCfg.MessageTTL, sagaCfg.PublishTimeout, app.Metrics, app.Logger)
	leaderLock := infraRedis.NewDistributedLock(app.Redis, leaderLockKey, sagaCfg.LockTTL)
	sched := scheduler.New(
		retryRepo,
		orderRepo,
		txManager,
		sender,
		leaderLock,
		scheduler.SystemClock{},
		scheduler.Config{
			TickInterval: sagaCfg.TickInterval,
			BatchSize:    sagaCfg.TickBatchSize,
			Backoff:      scheduler.Backoff{Base: sagaCfg.BackoffBase, Ceiling: sagaCfg.BackoffCeiling},
		},
		app.Metrics,
		app.Logger,
	)

	// --- Saga reply listeners ---
	locker := messaging.NewRedisOrderLocker(app.Redis, workerCfg.LockTTL)
	resolver := messaging.NewSagaResolver(retryRepo, orderRepo, txManager, locker, app.Metrics, app.Logger)

	confirmationListener := messaging.NewListener(
		infraRedis.NewStreamConsumer(
			app.Redis,
			infraRedis.ConfirmationStream,
			workerCfg.ConsumerGroup,
			app.Config.InstanceID,
			workerCfg.BatchSize,
			workerCfg.BlockDuration,
		),
		messaging.ConfirmationHandler(resolver, app.Logger),
		app.Metrics,
		app.Logger,
	)
	failureListener := messaging.NewListener(
		infraRedis.NewStreamConsumer(
			app.Redis,
			infraRedis.FailureStream,
			workerCfg.ConsumerGroup,
			app.Config.InstanceID,
			workerCfg.BatchSize,
			workerCfg.BlockDuration,
		),
		messaging.FailureHandler(resolver, app.Logger),
		app.Metrics,
		app.Logger,
	)

	app.Logger.Info().
		Dur("tick_interval", sagaCfg.TickInterval).
		Int("batch_size", sagaCfg.TickBatchSize).
		Msg("Scheduler started")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Retry scheduler ticks (leader only).
	g.Go(func() error {
		return sched.Run(gCtx)
	})

	// 2. Payment confirmation listener.
	g.Go(func() error {
		return confirmationListener.Run(gCtx)
	})

	// 3. Payment failure listener.
	g.Go(func() error {
		return failureListener.Run(gCtx)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down scheduler...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Scheduler error")
	}
	app.Logger.Info().Msg("Scheduler exited")
}
