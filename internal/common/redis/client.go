// Package redis wraps the go-redis client with logging and the subset of
// commands the title cache needs.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/common/config"
)

type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
	config *config.RedisConfig
}

func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Use go-redis library defaults:
	// - DialTimeout: 5s
	// - ReadTimeout: 3s
	// - WriteTimeout: 3s
	// - PoolSize: 10 * runtime.GOMAXPROCS(0)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	client := &Client{
		rdb:    rdb,
		logger: logger,
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Debug("Redis client connected successfully",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB))

	return client, nil
}

func (c *Client) Ping(ctx context.Context) error {
	result, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		c.logger.Error("Redis ping failed", zap.Error(err))
		return err
	}

	if result != "PONG" {
		err := fmt.Errorf("unexpected ping response: %s", result)
		c.logger.Error("Redis ping returned unexpected response", zap.String("response", result))
		return err
	}

	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now().UTC()

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	duration := time.Since(start)
	c.logger.Debug("Redis health check passed", zap.Duration("duration", duration))
	return nil
}

// Get returns the value of key, or "" when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	result, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		c.logger.Error("Redis GET failed",
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return result, nil
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := c.rdb.Set(ctx, key, value, expiration).Err()
	if err != nil {
		c.logger.Error("Redis SET failed",
			zap.String("key", key),
			zap.Duration("expiration", expiration),
			zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	err := c.rdb.Del(ctx, keys...).Err()
	if err != nil {
		c.logger.Error("Redis DEL failed",
			zap.Strings("keys", keys),
			zap.Error(err))
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.rdb != nil {
		err := c.rdb.Close()
		if err != nil {
			c.logger.Error("Failed to close Redis client", zap.Error(err))
			return err
		}
		c.logger.Debug("Redis client closed")
	}
	return nil
}

func (c *Client) GetClient() *redis.Client {
	return c.rdb
}
