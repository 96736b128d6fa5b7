// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/logging"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "feedgen",
	Short: "Personalized feed ranking for social-media field experiments",
	Long: `feedgen produces length-bounded, condition-specific feeds for every
study participant: reverse-chronological, engagement-ranked, or
representative-diversification-ranked, with per-author caps, in-network
quotas, and bounded recycling of previously seen posts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logging.Init(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the configuration file")
}
