// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/battlecache/internal/battle"
)

// CacheStatus holds the result of a status probe.
type CacheStatus struct {
	Addr      string  `json:"addr"`
	Reachable bool    `json:"reachable"`
	LatencyMS float64 `json:"latency_ms,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the Redis backend is reachable",
		Long:  `Ping the configured Redis server once and report its health and round-trip latency.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	client, cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer closeClient(client)

	status := CacheStatus{Addr: client.Addr()}
	start := time.Now()
	if err := cache.Ping(cmd.Context()); err != nil {
		status.ErrorKind = battle.KindOf(err).String()
		status.Error = err.Error()
	} else {
		status.Reachable = true
		status.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	}

	if cfg.jsonOutput {
		output, err := formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), formatStatusTable(status))
	return nil
}

func formatStatusTable(status CacheStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "REDIS\tSTATUS\tLATENCY")
	_, _ = fmt.Fprintln(w, "-----\t------\t-------")
	if status.Reachable {
		_, _ = fmt.Fprintf(w, "%s\treachable\t%.3fms\n", status.Addr, status.LatencyMS)
	} else {
		_, _ = fmt.Fprintf(w, "%s\tunreachable (%s)\t-\n", status.Addr, status.ErrorKind)
	}

	_ = w.Flush()
	return string(buf)
}

func formatStatusJSON(status CacheStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", err //nolint:wrapcheck // caller wraps
	}
	return string(data), nil
}

// byteWriter adapts a byte slice to io.Writer.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
