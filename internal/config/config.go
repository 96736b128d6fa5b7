// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package config defines the validated, immutable Feedgen configuration.
//
// Configuration is layered: compiled defaults, then an optional YAML file,
// then FEEDGEN_-prefixed environment variables. Derived values (the
// freshness decay ratio) are computed once at load time. Construction fails
// with a wrapped ErrInvalidConfig if any constraint is violated.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full Feedgen configuration. Treat loaded values as immutable;
// use Clone when a mutated copy is needed.
type Config struct {
	// Ranking contains the feed composition parameters.
	Ranking RankingConfig `koanf:"ranking"`

	// Scoring contains the scoring coefficients and freshness parameters.
	Scoring ScoringConfig `koanf:"scoring"`

	// Pipeline contains orchestration parameters.
	Pipeline PipelineConfig `koanf:"pipeline"`

	// Warehouse configures the DuckDB analytics database.
	Warehouse WarehouseConfig `koanf:"warehouse"`

	// FeedStore configures the Badger feed artifact store.
	FeedStore FeedStoreConfig `koanf:"feed_store"`

	// SocialGraph configures the Redis-backed social graph source.
	SocialGraph SocialGraphConfig `koanf:"social_graph"`

	// Events configures session event publication.
	Events EventsConfig `koanf:"events"`

	// Server configures the ops HTTP surface (daemon mode only).
	Server ServerConfig `koanf:"server"`

	// Log configures logging.
	Log LogConfig `koanf:"log"`
}

// RankingConfig holds the feed composition parameters.
type RankingConfig struct {
	// MaxFeedLength is the final feed length.
	// Default: 100.
	MaxFeedLength int `koanf:"max_feed_length"`

	// MaxAuthorPostsPerFeed caps how often one author may appear in each
	// candidate pool.
	// Default: 5.
	MaxAuthorPostsPerFeed int `koanf:"max_num_times_user_can_appear_in_feed"`

	// MaxPropOldPosts is the maximum proportion of a feed that may repeat
	// URIs from the user's previous feed.
	// Default: 0.6.
	MaxPropOldPosts float64 `koanf:"max_prop_old_posts"`

	// MaxInNetworkPostsRatio is the maximum proportion of in-network posts
	// in a feed; the rest is filled out-of-network.
	// Default: 0.5.
	MaxInNetworkPostsRatio float64 `koanf:"max_in_network_posts_ratio"`

	// FeedPreprocessingMultiplier sizes the candidate window handed to the
	// reranker (MaxFeedLength x this).
	// Default: 2.
	FeedPreprocessingMultiplier int `koanf:"feed_preprocessing_multiplier"`

	// JitterAmount bounds the random positional shift applied to the final
	// feed. Zero disables jitter.
	// Default: 2.
	JitterAmount int `koanf:"jitter_amount"`

	// Seed seeds the jitter RNG for reproducible sessions. If zero, a fixed
	// default seed is used.
	Seed int64 `koanf:"seed"`
}

// ScoringConfig holds scoring coefficients and freshness parameters.
type ScoringConfig struct {
	// CoefToxicity scales prob_toxic in the treatment denominator.
	// Default: 0.965.
	CoefToxicity float64 `koanf:"coef_toxicity"`

	// CoefConstructiveness scales prob_constructive in the treatment
	// numerator.
	// Default: 1.02.
	CoefConstructiveness float64 `koanf:"coef_constructiveness"`

	// SuperposterCoef penalizes superposter content in treatment scoring.
	// Default: 0.95.
	SuperposterCoef float64 `koanf:"superposter_coef"`

	// EngagementCoef scales the engagement score.
	// Default: 1.0.
	EngagementCoef float64 `koanf:"engagement_coef"`

	// DefaultMaxFreshnessScore is the freshness score of a brand-new post.
	// Default: 3.0.
	DefaultMaxFreshnessScore float64 `koanf:"default_max_freshness_score"`

	// FreshnessLambdaFactor is the per-hour exponential decay factor.
	// Default: 0.95.
	FreshnessLambdaFactor float64 `koanf:"freshness_lambda_factor"`

	// FreshnessExponentialBase scales the exponential decay base.
	// Default: 1.0.
	FreshnessExponentialBase float64 `koanf:"freshness_exponential_base"`

	// FreshnessMode selects the decay curve: "exponential" or "linear".
	// Default: exponential.
	FreshnessMode string `koanf:"freshness_mode"`

	// LookbackDays bounds both the enriched-post fetch window and the
	// freshness age clamp.
	// Default: 1.
	LookbackDays int `koanf:"default_lookback_days"`

	// ScoringLookbackDays is the cached-score lookback window.
	// Default: 1.
	ScoringLookbackDays int `koanf:"default_scoring_lookback_days"`

	// DefaultSimilarityScore is the likeability fallback when a post has
	// neither like count nor similarity score.
	// Default: 0.8.
	DefaultSimilarityScore float64 `koanf:"default_similarity_score"`

	// AveragePopularPostLikeCount anchors the likeability fallback.
	// Default: 100.
	AveragePopularPostLikeCount float64 `koanf:"average_popular_post_like_count"`

	// FreshnessDecayRatio is derived at load time:
	// DefaultMaxFreshnessScore / (LookbackDays * 24).
	FreshnessDecayRatio float64 `koanf:"-"`
}

// PipelineConfig holds orchestration parameters.
type PipelineConfig struct {
	// Workers bounds the per-user feed generation worker pool.
	// Default: 8.
	Workers int `koanf:"workers"`

	// KeepCount is how many feed artifacts the TTL step retains in the
	// active tier.
	// Default: 3.
	KeepCount int `koanf:"keep_count"`

	// Interval is the daemon-mode cadence between sessions.
	// Default: 1h.
	Interval time.Duration `koanf:"interval"`

	// StepTimeout is the hard per-step timeout; an expired step aborts the
	// session.
	// Default: 10m.
	StepTimeout time.Duration `koanf:"step_timeout"`

	// ExclusionListPath is the YAML artifact holding the author exclusion
	// lists. Empty disables exclusion filtering.
	ExclusionListPath string `koanf:"exclusion_list_path"`

	// SuperposterSource selects where the superposter set comes from:
	// "local" (Badger batch artifact) or "remote" (warehouse table).
	// Default: local.
	SuperposterSource string `koanf:"superposter_source"`
}

// WarehouseConfig configures the DuckDB analytics database.
type WarehouseConfig struct {
	// Path is the DuckDB database file. Default: /data/feedgen.duckdb.
	Path string `koanf:"path"`

	// QueriesPerSecond throttles warehouse queries. Zero disables the
	// limiter.
	// Default: 20.
	QueriesPerSecond float64 `koanf:"queries_per_second"`

	// BreakerEnabled wraps warehouse access in a circuit breaker.
	// Default: true.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// FeedStoreConfig configures the Badger feed artifact store.
type FeedStoreConfig struct {
	// Path is the Badger directory. Default: /data/feedstore.
	Path string `koanf:"path"`

	// InMemory runs Badger without persistence. Test use only.
	InMemory bool `koanf:"in_memory"`
}

// SocialGraphConfig configures the Redis social graph source.
type SocialGraphConfig struct {
	// Addr is the Redis address. Default: 127.0.0.1:6379.
	Addr string `koanf:"addr"`

	// Password is the optional Redis password.
	Password string `koanf:"password"`

	// DB is the Redis database number.
	DB int `koanf:"db"`

	// KeyPrefix is the per-user followed-set key prefix.
	// Default: "graph:user:".
	KeyPrefix string `koanf:"key_prefix"`
}

// EventsConfig configures session event publication.
type EventsConfig struct {
	// Enabled toggles publication of session-completed events.
	// Default: false.
	Enabled bool `koanf:"enabled"`

	// NATSURL is the NATS server URL.
	// Default: nats://127.0.0.1:4222.
	NATSURL string `koanf:"nats_url"`

	// Topic is the session-completed topic.
	// Default: feedgen.session.completed.
	Topic string `koanf:"topic"`
}

// ServerConfig configures the ops HTTP surface.
type ServerConfig struct {
	// Port for /health, /metrics and /status. Default: 3857.
	Port int `koanf:"port"`

	// Timeout is the HTTP read/write timeout. Default: 30s.
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: trace, debug, info, warn, error. Default: info.
	Level string `koanf:"level"`

	// Format: json or console. Default: json.
	Format string `koanf:"format"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	return &Config{
		Ranking: RankingConfig{
			MaxFeedLength:               100,
			MaxAuthorPostsPerFeed:       5,
			MaxPropOldPosts:             0.6,
			MaxInNetworkPostsRatio:      0.5,
			FeedPreprocessingMultiplier: 2,
			JitterAmount:                2,
			Seed:                        42,
		},
		Scoring: ScoringConfig{
			CoefToxicity:                0.965,
			CoefConstructiveness:        1.02,
			SuperposterCoef:             0.95,
			EngagementCoef:              1.0,
			DefaultMaxFreshnessScore:    3.0,
			FreshnessLambdaFactor:       0.95,
			FreshnessExponentialBase:    1.0,
			FreshnessMode:               FreshnessModeExponential,
			LookbackDays:                1,
			ScoringLookbackDays:         1,
			DefaultSimilarityScore:      0.8,
			AveragePopularPostLikeCount: 100,
		},
		Pipeline: PipelineConfig{
			Workers:           8,
			KeepCount:         3,
			Interval:          time.Hour,
			StepTimeout:       10 * time.Minute,
			SuperposterSource: SuperposterSourceLocal,
		},
		Warehouse: WarehouseConfig{
			Path:             "/data/feedgen.duckdb",
			QueriesPerSecond: 20,
			BreakerEnabled:   true,
		},
		FeedStore: FeedStoreConfig{
			Path: "/data/feedstore",
		},
		SocialGraph: SocialGraphConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "graph:user:",
		},
		Events: EventsConfig{
			Enabled: false,
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "feedgen.session.completed",
		},
		Server: ServerConfig{
			Port:    3857,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Freshness decay modes.
const (
	FreshnessModeExponential = "exponential"
	FreshnessModeLinear      = "linear"
)

// Superposter sources.
const (
	SuperposterSourceLocal  = "local"
	SuperposterSourceRemote = "remote"
)

// defaultSeed substitutes for an unset jitter seed.
const defaultSeed = 42

// Validate checks the configuration and computes derived values.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Ranking.MaxFeedLength <= 0 {
		return invalidf("ranking.max_feed_length must be positive, got %d", c.Ranking.MaxFeedLength)
	}
	if c.Ranking.MaxAuthorPostsPerFeed <= 0 {
		return invalidf("ranking.max_num_times_user_can_appear_in_feed must be positive, got %d", c.Ranking.MaxAuthorPostsPerFeed)
	}
	if c.Ranking.MaxPropOldPosts < 0 || c.Ranking.MaxPropOldPosts > 1 {
		return invalidf("ranking.max_prop_old_posts must be in [0, 1], got %f", c.Ranking.MaxPropOldPosts)
	}
	if c.Ranking.MaxInNetworkPostsRatio < 0 || c.Ranking.MaxInNetworkPostsRatio > 1 {
		return invalidf("ranking.max_in_network_posts_ratio must be in [0, 1], got %f", c.Ranking.MaxInNetworkPostsRatio)
	}
	if c.Ranking.FeedPreprocessingMultiplier <= 0 {
		return invalidf("ranking.feed_preprocessing_multiplier must be positive, got %d", c.Ranking.FeedPreprocessingMultiplier)
	}
	if c.Ranking.JitterAmount < 0 {
		return invalidf("ranking.jitter_amount must be non-negative, got %d", c.Ranking.JitterAmount)
	}

	if c.Scoring.CoefToxicity <= 0 {
		return invalidf("scoring.coef_toxicity must be positive, got %f", c.Scoring.CoefToxicity)
	}
	if c.Scoring.CoefConstructiveness <= 0 {
		return invalidf("scoring.coef_constructiveness must be positive, got %f", c.Scoring.CoefConstructiveness)
	}
	if c.Scoring.SuperposterCoef <= 0 || c.Scoring.SuperposterCoef > 1 {
		return invalidf("scoring.superposter_coef must be in (0, 1], got %f", c.Scoring.SuperposterCoef)
	}
	if c.Scoring.EngagementCoef <= 0 {
		return invalidf("scoring.engagement_coef must be positive, got %f", c.Scoring.EngagementCoef)
	}
	if c.Scoring.DefaultMaxFreshnessScore <= 0 {
		return invalidf("scoring.default_max_freshness_score must be positive, got %f", c.Scoring.DefaultMaxFreshnessScore)
	}
	if c.Scoring.FreshnessLambdaFactor <= 0 || c.Scoring.FreshnessLambdaFactor > 1 {
		return invalidf("scoring.freshness_lambda_factor must be in (0, 1], got %f", c.Scoring.FreshnessLambdaFactor)
	}
	if c.Scoring.FreshnessExponentialBase <= 0 {
		return invalidf("scoring.freshness_exponential_base must be positive, got %f", c.Scoring.FreshnessExponentialBase)
	}
	if c.Scoring.FreshnessMode != FreshnessModeExponential && c.Scoring.FreshnessMode != FreshnessModeLinear {
		return invalidf("scoring.freshness_mode must be %q or %q, got %q", FreshnessModeExponential, FreshnessModeLinear, c.Scoring.FreshnessMode)
	}
	if c.Scoring.LookbackDays <= 0 {
		return invalidf("scoring.default_lookback_days must be positive, got %d", c.Scoring.LookbackDays)
	}
	if c.Scoring.ScoringLookbackDays <= 0 {
		return invalidf("scoring.default_scoring_lookback_days must be positive, got %d", c.Scoring.ScoringLookbackDays)
	}
	if c.Scoring.DefaultSimilarityScore < 0 || c.Scoring.DefaultSimilarityScore > 1 {
		return invalidf("scoring.default_similarity_score must be in [0, 1], got %f", c.Scoring.DefaultSimilarityScore)
	}
	if c.Scoring.AveragePopularPostLikeCount <= 0 {
		return invalidf("scoring.average_popular_post_like_count must be positive, got %f", c.Scoring.AveragePopularPostLikeCount)
	}

	if c.Pipeline.Workers <= 0 {
		return invalidf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.KeepCount <= 0 {
		return invalidf("pipeline.keep_count must be positive, got %d", c.Pipeline.KeepCount)
	}
	if c.Pipeline.StepTimeout <= 0 {
		return invalidf("pipeline.step_timeout must be positive, got %v", c.Pipeline.StepTimeout)
	}
	if c.Pipeline.SuperposterSource != SuperposterSourceLocal && c.Pipeline.SuperposterSource != SuperposterSourceRemote {
		return invalidf("pipeline.superposter_source must be %q or %q, got %q", SuperposterSourceLocal, SuperposterSourceRemote, c.Pipeline.SuperposterSource)
	}

	if c.Warehouse.QueriesPerSecond < 0 {
		return invalidf("warehouse.queries_per_second must be non-negative, got %f", c.Warehouse.QueriesPerSecond)
	}

	// Derived values.
	if c.Ranking.Seed == 0 {
		c.Ranking.Seed = defaultSeed
	}
	c.Scoring.FreshnessDecayRatio = c.Scoring.DefaultMaxFreshnessScore / (float64(c.Scoring.LookbackDays) * 24)

	return nil
}

// invalidf wraps a formatted validation failure in ErrInvalidConfig.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Clone returns a deep copy of the configuration. All nested structs hold
// only value types, so a field copy suffices.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// MaxInNetworkPosts returns the in-network item cap for one feed.
func (c *Config) MaxInNetworkPosts() int {
	return int(float64(c.Ranking.MaxFeedLength) * c.Ranking.MaxInNetworkPostsRatio)
}

// MaxOldPosts returns the recycled-URI cap for one feed.
func (c *Config) MaxOldPosts() int {
	return int(float64(c.Ranking.MaxFeedLength) * c.Ranking.MaxPropOldPosts)
}

// PreprocessingWindow returns the candidate window handed to the reranker.
func (c *Config) PreprocessingWindow() int {
	return c.Ranking.MaxFeedLength * c.Ranking.FeedPreprocessingMultiplier
}
