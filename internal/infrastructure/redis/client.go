package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/ordersaga/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// NewClient connects the broker client used for streams and locks. Startup
// retries cover the compose case where Redis is still coming up when the
// workers start.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	maxRetries := cfg.ConnectRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	retryDelay := cfg.ConnectRetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		time.Sleep(time.Duration(i+1) * retryDelay)
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d retries: %w", maxRetries, lastErr)
}
