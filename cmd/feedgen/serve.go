// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bskylab/feedgen/internal/api"
	"github.com/bskylab/feedgen/internal/feed"
	"github.com/bskylab/feedgen/internal/logging"
	"github.com/bskylab/feedgen/internal/scheduler"
	"github.com/bskylab/feedgen/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run sessions on the configured interval with the ops HTTP surface",
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
		sched := scheduler.New(cfg, orch, feed.RunOptions{ExportNewScores: true}, logger)

		checks := map[string]api.HealthCheck{
			"warehouse":    w.warehouse.Ping,
			"social_graph": w.graph.Ping,
		}
		ops := api.NewServer(cfg, sched, checks, logger)

		tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
		tree.AddPipelineService(sched)
		tree.AddAPIService(ops)

		logger.Info().Dur("interval", cfg.Pipeline.Interval).Msg("daemon starting")
		if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
