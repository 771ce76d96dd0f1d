// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn is the set of commands the cache issues on one scoped backend
// connection. *redis.Conn satisfies it.
type Conn interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd

	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd

	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd

	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd

	Ping(ctx context.Context) *redis.StatusCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)

	// Close returns the connection to its pool.
	Close() error
}

// Provider hands out a fresh connection per logical operation.
// The caller owns the returned Conn and must Close it on every path.
type Provider interface {
	Conn(ctx context.Context) (Conn, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Conn, error)

// Conn implements Provider.
func (f ProviderFunc) Conn(ctx context.Context) (Conn, error) { return f(ctx) }

// Observer receives one call per completed cache operation.
// outcome is the Kind string of the returned error ("ok" on success).
type Observer interface {
	ObserveCacheOp(operation, outcome string, elapsed time.Duration)
	ObserveEventDecodeFailure()
}

type nopObserver struct{}

func (nopObserver) ObserveCacheOp(string, string, time.Duration) {}
func (nopObserver) ObserveEventDecodeFailure()                     {}
