// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bskylab/feedgen/internal/feed"
	"github.com/bskylab/feedgen/internal/logging"
)

var (
	runUsers      []string
	runSkipScores bool
	runTestMode   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single feed generation session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := logging.Logger()
		w, err := buildWiring(cfg, logger)
		if err != nil {
			return err
		}
		defer w.close(logger)

		orch := feed.NewOrchestrator(cfg, w.deps, logger)
		result, err := orch.Run(ctx, feed.RunOptions{
			UsersFilter:     runUsers,
			ExportNewScores: !runSkipScores,
			TestMode:        runTestMode,
		})
		if result != nil {
			logger.Info().
				Str("run_id", result.RunID).
				Int("feeds", result.FeedsWritten).
				Int("failed_users", result.FailedUsers).
				Msg("session finished")
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runUsers, "users", nil, "restrict the session to these user DIDs")
	runCmd.Flags().BoolVar(&runSkipScores, "skip-score-export", false, "do not persist freshly computed scores")
	runCmd.Flags().BoolVar(&runTestMode, "test-mode", false, "test participants only; skip TTL and session metadata")
	rootCmd.AddCommand(runCmd)
}
