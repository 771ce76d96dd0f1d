// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads battlecache settings from command-line flags and an
// optional YAML file.
//
// Precedence, lowest first: flag defaults, the YAML file, flags set on the
// command line.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/battlecache/internal/battle"
	"github.com/holomush/battlecache/internal/logging"
	"github.com/holomush/battlecache/internal/redisconn"
)

// Config is the full battlecache configuration.
type Config struct {
	Redis   RedisConfig   `koanf:"redis"`
	TTL     TTLConfig     `koanf:"ttl"`
	Events  EventsConfig  `koanf:"events"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// RedisConfig describes the cache backend.
type RedisConfig struct {
	Addr           string        `koanf:"addr"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	PoolSize       int           `koanf:"pool_size"`
	DialTimeout    time.Duration `koanf:"dial_timeout"`
	OpTimeout      time.Duration `koanf:"op_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
}

// TTLConfig holds record expirations.
type TTLConfig struct {
	Battle      time.Duration `koanf:"battle"`
	ActiveIndex time.Duration `koanf:"active_index"`
}

// EventsConfig holds event log read settings.
type EventsConfig struct {
	DefaultLimit int `koanf:"default_limit"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig holds the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Redis: RedisConfig{
			Addr:           "127.0.0.1:6379",
			PoolSize:       10,
			DialTimeout:    5 * time.Second,
			OpTimeout:      battle.DefaultOpTimeout,
			ConnectRetries: 5,
		},
		TTL: TTLConfig{
			Battle:      battle.DefaultBattleTTL,
			ActiveIndex: battle.DefaultIndexTTL,
		},
		Events:  EventsConfig{DefaultLimit: battle.DefaultEventLimit},
		Log:     LogConfig{Format: "json", Level: "info"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

// BindFlags registers the connection, TTL and logging flags shared by every
// command. Flag names map onto keys by replacing the first dash with a dot
// and the rest with underscores: --redis-pool-size sets redis.pool_size.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("redis-addr", d.Redis.Addr, "redis host:port")
	fs.String("redis-username", d.Redis.Username, "redis ACL username")
	fs.String("redis-password", d.Redis.Password, "redis password")
	fs.Int("redis-db", d.Redis.DB, "redis logical database")
	fs.Int("redis-pool-size", d.Redis.PoolSize, "maximum pooled connections")
	fs.Duration("redis-dial-timeout", d.Redis.DialTimeout, "timeout for establishing a connection")
	fs.Duration("redis-op-timeout", d.Redis.OpTimeout, "timeout for each cache operation")
	fs.Uint64("redis-connect-retries", d.Redis.ConnectRetries, "startup ping retries before giving up")
	fs.Duration("ttl-battle", d.TTL.Battle, "expiry of state, participant, event and marker records")
	fs.Duration("ttl-active-index", d.TTL.ActiveIndex, "expiry of per-user active battle sets")
	fs.Int("events-default-limit", d.Events.DefaultLimit, "events returned when no limit is given")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// BindMetricsFlag registers --metrics-addr for commands that serve metrics.
func BindMetricsFlag(fs *pflag.FlagSet) {
	fs.String("metrics-addr", Default().Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// flagKey maps a flag name to its config key. Flags without a section
// prefix, such as --config, are not configuration keys.
func flagKey(name string) string {
	section, rest, ok := strings.Cut(name, "-")
	if !ok {
		return ""
	}
	return section + "." + strings.ReplaceAll(rest, "-", "_")
}

// Load builds a Config from fs and, when path is non-empty, a YAML file.
func Load(fs *pflag.FlagSet, path string) (Config, error) {
	ko := koanf.New(".")

	if path != "" {
		if err := ko.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.In("config").
				Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "read config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", ko, func(f *pflag.Flag) (string, any) {
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := ko.Load(provider, nil); err != nil {
			return Config{}, oops.In("config").
				Code("CONFIG_LOAD_FAILED").
				Wrapf(err, "read flags")
		}
	}

	cfg := Default()
	if err := ko.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.In("config").
			Code("CONFIG_LOAD_FAILED").
			Wrapf(err, "decode config")
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	invalid := oops.In("config").Code("CONFIG_INVALID")
	switch {
	case c.Redis.Addr == "":
		return invalid.Errorf("redis.addr is required")
	case c.Redis.DB < 0:
		return invalid.With("db", c.Redis.DB).Errorf("redis.db must not be negative")
	case c.Redis.PoolSize < 0:
		return invalid.With("pool_size", c.Redis.PoolSize).Errorf("redis.pool_size must not be negative")
	case c.Redis.OpTimeout <= 0:
		return invalid.With("op_timeout", c.Redis.OpTimeout).Errorf("redis.op_timeout must be positive")
	case c.TTL.Battle <= 0:
		return invalid.With("battle", c.TTL.Battle).Errorf("ttl.battle must be positive")
	case c.TTL.ActiveIndex < c.TTL.Battle:
		return invalid.
			With("battle", c.TTL.Battle).
			With("active_index", c.TTL.ActiveIndex).
			Errorf("ttl.active_index must not be shorter than ttl.battle")
	case c.Events.DefaultLimit <= 0:
		return invalid.With("default_limit", c.Events.DefaultLimit).Errorf("events.default_limit must be positive")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid.With("format", c.Log.Format).Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid.With("level", c.Log.Level).Wrap(err)
	}
	return nil
}

// LogLevel returns the parsed log level, falling back to info.
func (c Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// RedisOptions returns the connection settings for redisconn.
func (c Config) RedisOptions() redisconn.Options {
	return redisconn.Options{
		Addr:           c.Redis.Addr,
		Username:       c.Redis.Username,
		Password:       c.Redis.Password,
		DB:             c.Redis.DB,
		PoolSize:       c.Redis.PoolSize,
		DialTimeout:    c.Redis.DialTimeout,
		IOTimeout:      c.Redis.OpTimeout,
		ConnectRetries: c.Redis.ConnectRetries,
	}
}

// CacheOptions returns the battle cache options implied by the
// configuration. Callers append their own logger and observer.
func (c Config) CacheOptions() []battle.Option {
	return []battle.Option{
		battle.WithTTL(c.TTL.Battle),
		battle.WithIndexTTL(c.TTL.ActiveIndex),
		battle.WithOpTimeout(c.Redis.OpTimeout),
		battle.WithEventLimit(c.Events.DefaultLimit),
	}
}
