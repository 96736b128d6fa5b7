// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package config

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateComputesFreshnessDecayRatio(t *testing.T) {
	cfg := Default()
	cfg.Scoring.DefaultMaxFreshnessScore = 3.0
	cfg.Scoring.LookbackDays = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := 3.0 / 24
	if math.Abs(cfg.Scoring.FreshnessDecayRatio-want) > 1e-12 {
		t.Errorf("decay ratio = %v, want %v", cfg.Scoring.FreshnessDecayRatio, want)
	}
}

func TestValidateDefaultsZeroSeed(t *testing.T) {
	cfg := Default()
	cfg.Ranking.Seed = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Ranking.Seed == 0 {
		t.Errorf("zero seed must fall back to the fixed default")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero feed length", func(c *Config) { c.Ranking.MaxFeedLength = 0 }},
		{"zero author cap", func(c *Config) { c.Ranking.MaxAuthorPostsPerFeed = 0 }},
		{"old posts over one", func(c *Config) { c.Ranking.MaxPropOldPosts = 1.5 }},
		{"negative in-network ratio", func(c *Config) { c.Ranking.MaxInNetworkPostsRatio = -0.1 }},
		{"zero preprocessing multiplier", func(c *Config) { c.Ranking.FeedPreprocessingMultiplier = 0 }},
		{"negative jitter", func(c *Config) { c.Ranking.JitterAmount = -1 }},
		{"zero toxicity coef", func(c *Config) { c.Scoring.CoefToxicity = 0 }},
		{"superposter coef over one", func(c *Config) { c.Scoring.SuperposterCoef = 1.5 }},
		{"lambda over one", func(c *Config) { c.Scoring.FreshnessLambdaFactor = 1.5 }},
		{"unknown freshness mode", func(c *Config) { c.Scoring.FreshnessMode = "sigmoid" }},
		{"zero lookback", func(c *Config) { c.Scoring.LookbackDays = 0 }},
		{"similarity over one", func(c *Config) { c.Scoring.DefaultSimilarityScore = 1.5 }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"zero keep count", func(c *Config) { c.Pipeline.KeepCount = 0 }},
		{"unknown superposter source", func(c *Config) { c.Pipeline.SuperposterSource = "s3" }},
		{"negative qps", func(c *Config) { c.Warehouse.QueriesPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestDerivedHelpers(t *testing.T) {
	cfg := Default() // feed length 100, ratio 0.5, old 0.6, multiplier 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := cfg.MaxInNetworkPosts(); got != 50 {
		t.Errorf("MaxInNetworkPosts = %d, want 50", got)
	}
	if got := cfg.MaxOldPosts(); got != 60 {
		t.Errorf("MaxOldPosts = %d, want 60", got)
	}
	if got := cfg.PreprocessingWindow(); got != 200 {
		t.Errorf("PreprocessingWindow = %d, want 200", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Ranking.MaxFeedLength = 7

	if cfg.Ranking.MaxFeedLength == 7 {
		t.Errorf("mutating the clone changed the original")
	}
}
