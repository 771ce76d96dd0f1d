// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/battlecache/internal/battle"
)

type inspectConfig struct {
	participants []int64
	limit        int
	output       string
}

// newInspectCmd creates the inspect subcommand.
func newInspectCmd() *cobra.Command {
	cfg := &inspectConfig{}

	cmd := &cobra.Command{
		Use:   "inspect <battle-id>",
		Short: "Print everything cached for a battle",
		Long: `Print a battle's state, the requested participant records, its most
recent events and the time of its last committed turn. Records expire
independently, so parts may be missing; the command fails only when nothing
is cached for the battle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			battleID, err := parseID("battle", args[0])
			if err != nil {
				return err
			}
			return runInspect(cmd, cfg, battleID)
		},
	}

	cmd.Flags().Int64SliceVar(&cfg.participants, "participant", nil, "participant id to include (repeatable)")
	cmd.Flags().IntVar(&cfg.limit, "limit", 0, "number of recent events (default events.default_limit)")
	cmd.Flags().StringVarP(&cfg.output, "output", "o", "yaml", "output format (json or yaml)")

	return cmd
}

func runInspect(cmd *cobra.Command, cfg *inspectConfig, battleID int64) error {
	if cfg.output != "json" && cfg.output != "yaml" {
		return fmt.Errorf("output must be 'json' or 'yaml', got %q", cfg.output)
	}

	client, cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer closeClient(client)

	snap, err := cache.Snapshot(cmd.Context(), battleID, cfg.participants, cfg.limit)
	if errors.Is(err, battle.ErrNotFound) {
		return fmt.Errorf("battle %d: nothing cached", battleID)
	}
	if err != nil {
		return fmt.Errorf("failed to read battle %d: %w", battleID, err)
	}

	return writeSnapshot(cmd.OutOrStdout(), snap, cfg.output)
}

// writeSnapshot renders snap. YAML output goes through the JSON form so
// both formats share field names and the event wire layout.
func writeSnapshot(w io.Writer, snap *battle.Snapshot, format string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err //nolint:wrapcheck // write to command output
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to re-read snapshot: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode snapshot as yaml: %w", err)
	}
	return enc.Close() //nolint:wrapcheck // flushes to command output
}
