// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisconn provides the Redis connection provider used by the
// battle cache: a pooled go-redis client that hands out one scoped
// connection per operation.
package redisconn

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/battlecache/internal/battle"
)

// ErrClosed is returned by Conn after Close.
var ErrClosed = errors.New("redis client closed")

var _ battle.Conn = (*redis.Conn)(nil)

// Options configures the client.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int
	// DialTimeout bounds establishing a new TCP connection.
	DialTimeout time.Duration
	// IOTimeout bounds each socket read and write.
	IOTimeout time.Duration
	// ConnectRetries is how many times Open retries the initial PING.
	ConnectRetries uint64
	// RetryBase is the first backoff delay between PING attempts.
	RetryBase time.Duration
}

// Client is a battle.Provider backed by a go-redis connection pool.
type Client struct {
	rdb    *redis.Client
	addr   string
	closed atomic.Bool
}

// New creates a client without contacting the server.
func New(opts Options) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.IOTimeout,
		WriteTimeout: opts.IOTimeout,
	})
	return &Client{rdb: rdb, addr: opts.Addr}
}

// Open creates a client and waits until the server answers PING, retrying
// with capped exponential backoff up to opts.ConnectRetries times.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := New(opts)

	base := opts.RetryBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(opts.ConnectRetries,
		retry.WithCappedDuration(5*time.Second, retry.NewExponential(base)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "redis not reachable yet",
				"addr", opts.Addr, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = c.rdb.Close()
		return nil, oops.In("redisconn").
			Code("CACHE_CONNECTION_FAILED").
			With("addr", opts.Addr).
			With("attempts", attempt).
			Wrapf(errors.Join(battle.ErrConnection, err), "connect to redis")
	}

	logger.InfoContext(ctx, "connected to redis", "addr", opts.Addr, "attempts", attempt)
	return c, nil
}

// Conn returns a connection reserved for one operation. The caller must
// Close it, which hands it back to the pool.
func (c *Client) Conn(ctx context.Context) (battle.Conn, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.rdb.Conn(), nil
}

// Ping checks the server through the pool.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.rdb.Ping(ctx).Err() //nolint:wrapcheck // callers classify go-redis errors
}

// Addr returns the configured server address.
func (c *Client) Addr() string { return c.addr }

// Stats reports pool usage.
func (c *Client) Stats() *redis.PoolStats { return c.rdb.PoolStats() }

// Close releases the pool. Further Conn calls fail with ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		return oops.In("redisconn").With("addr", c.addr).Wrap(err)
	}
	return nil
}
