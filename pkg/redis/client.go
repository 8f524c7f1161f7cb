package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taho/analytics/pkg/config"
)

// connectTimeout bounds the startup ping
const connectTimeout = 5 * time.Second

// Client wraps the report-cache Redis connection. Caching is optional: a
// disabled client turns every cache operation into a no-op, so the API
// serves reports with or without Redis present.
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects to Redis when enabled, otherwise returns a no-op client
func New(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return NewDisabled(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect %s: %w", cfg.Host, err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// NewDisabled creates a client whose operations are all no-ops
func NewDisabled() *Client {
	return &Client{}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled reports whether a live connection exists
func (c *Client) Enabled() bool {
	return c.enabled
}
