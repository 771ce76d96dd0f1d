// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/battlecache/internal/battle"
	"github.com/holomush/battlecache/internal/config"
	"github.com/holomush/battlecache/internal/logging"
	"github.com/holomush/battlecache/internal/observability"
	"github.com/holomush/battlecache/internal/redisconn"
)

const (
	readinessTimeout  = time.Second
	shutdownTimeout   = 5 * time.Second
	keepaliveInterval = 30 * time.Second
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Redis and serve metrics and health probes",
		Long: `Connect to Redis, retrying until it answers, then serve Prometheus
metrics and liveness/readiness probes until interrupted. Readiness follows
Redis: the probe fails while PING fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg)
		},
	}

	config.BindMetricsFlag(cmd.Flags())

	return cmd
}

// runServe blocks until shutdown is requested or the observability server
// fails.
func runServe(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.LogLevel())

	client, err := redisconn.Open(ctx, cfg.RedisOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer closeClient(client)

	kaCtx, stopKeepalive := context.WithCancel(ctx)
	defer stopKeepalive()

	opts := append(cfg.CacheOptions(), battle.WithLogger(logger))

	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		var cache *battle.Cache
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer pingCancel()
			return cache.Ping(pingCtx) == nil
		})
		opts = append(opts, battle.WithObserver(obsServer.Metrics()))
		cache = battle.New(client, opts...)
		observability.RegisterPoolStats(obsServer.Registry(), client.Stats)

		obsErrCh, err = obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer stopObservability(obsServer)
		go keepalive(kaCtx, cache, logger)
	} else {
		go keepalive(kaCtx, battle.New(client, opts...), logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if obsServer != nil {
		cmd.Printf("battlecache serving on %s (redis %s)\n", obsServer.Addr(), client.Addr())
	} else {
		cmd.Printf("battlecache connected to redis %s (metrics disabled)\n", client.Addr())
	}
	logger.Info("battlecache ready", "redis_addr", client.Addr(), "metrics_addr", cfg.Metrics.Addr)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			return fmt.Errorf("observability server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(server *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// keepalive pings Redis periodically so an outage shows up in the logs and
// the ping operation metrics even when nothing else is using the cache.
func keepalive(ctx context.Context, cache *battle.Cache, logger *slog.Logger) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := cache.Ping(ctx)
			switch {
			case err != nil && healthy:
				logger.Warn("redis stopped answering", "error", err)
			case err == nil && !healthy:
				logger.Info("redis answering again")
			}
			healthy = err == nil
		}
	}
}
