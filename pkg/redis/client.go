// Package redis provides the Redis client and the run lock that keeps two
// pipeline runs from publishing at the same time.
package redis

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client wraps the Redis client with logging
type Client struct {
	rdb    redis.UniversalClient
	addr   string
	logger ectologger.Logger
}

// NewClient creates a new Redis client. The connection is checked by Start.
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return NewClientFrom(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), addr, logger)
}

// NewClientFrom wraps an existing go-redis client.
func NewClientFrom(rdb redis.UniversalClient, addr string, logger ectologger.Logger) *Client {
	return &Client{
		rdb:    rdb,
		addr:   addr,
		logger: logger,
	}
}

func (c *Client) GetName() string     { return "redis" }
func (c *Client) DependsOn() []string { return nil }

func (c *Client) Start(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", c.addr, err)
	}
	c.logger.WithContext(ctx).Infof("Connected to Redis at %s", c.addr)
	return nil
}

func (c *Client) Stop(_ context.Context) error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
