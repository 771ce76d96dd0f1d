// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type endConfig struct {
	participants []int64
	users        []int64
}

// newEndCmd creates the end subcommand.
func newEndCmd() *cobra.Command {
	cfg := &endConfig{}

	cmd := &cobra.Command{
		Use:   "end <battle-id>",
		Short: "Remove a finished battle from the cache",
		Long: `Delete a battle's state, event log and modified marker together with the
named participant records, and remove the battle from each named user's
active set. Everything is removed in a single transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			battleID, err := parseID("battle", args[0])
			if err != nil {
				return err
			}

			client, cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			if err := cache.EndBattle(cmd.Context(), battleID, cfg.participants, cfg.users); err != nil {
				return fmt.Errorf("failed to end battle %d: %w", battleID, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "battle %d removed (%d participants, %d users)\n",
				battleID, len(cfg.participants), len(cfg.users))
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&cfg.participants, "participant", nil, "participant id whose record to delete (repeatable)")
	cmd.Flags().Int64SliceVar(&cfg.users, "user", nil, "user id whose active set to update (repeatable)")

	return cmd
}
