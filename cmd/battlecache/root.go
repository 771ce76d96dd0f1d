// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/holomush/battlecache/internal/battle"
	"github.com/holomush/battlecache/internal/config"
	"github.com/holomush/battlecache/internal/logging"
	"github.com/holomush/battlecache/internal/redisconn"
)

const serviceName = "battlecache"

// NewRootCmd creates the root command for the battlecache CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battlecache",
		Short: "Battle state cache for the turn-based battle engine",
		Long: `battlecache keeps the live state of running battles in Redis: the
state blob, participant records, the event log and each user's active
battles. The serve command exposes metrics and health probes; the other
commands inspect and clean up cached battles.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newActiveCmd())
	cmd.AddCommand(newEndCmd())

	return cmd
}

// loadConfig reads and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("read --config: %w", err)
	}
	cfg, err := config.Load(cmd.Flags(), path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// commandLogger returns a logger writing to the command's error stream.
func commandLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.Setup(serviceName, version, cfg.Log.Format, cfg.LogLevel(), cmd.ErrOrStderr())
}

// openCache connects to Redis without retrying and wraps the client in a
// Cache. Operator commands fail fast; only serve waits for the server.
func openCache(cmd *cobra.Command) (*redisconn.Client, *battle.Cache, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := commandLogger(cmd, cfg)

	client := redisconn.New(cfg.RedisOptions())
	opts := append(cfg.CacheOptions(), battle.WithLogger(logger))
	return client, battle.New(client, opts...), nil
}

func closeClient(client *redisconn.Client) {
	if err := client.Close(); err != nil {
		slog.Debug("error closing redis client", "error", err)
	}
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}
