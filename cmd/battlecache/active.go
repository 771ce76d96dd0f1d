// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newActiveCmd creates the active subcommand.
func newActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active <user-id>",
		Short: "List the battles a user is taking part in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}

			client, cache, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer closeClient(client)

			ids, err := cache.Active.List(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list battles for user %d: %w", userID, err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				_, _ = fmt.Fprintf(out, "user %d has no active battles\n", userID)
				return nil
			}
			for _, id := range ids {
				_, _ = fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}
