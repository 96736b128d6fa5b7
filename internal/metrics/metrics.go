// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package metrics exposes Prometheus instrumentation for the feed
// generation pipeline: session outcomes, per-step latency, scorer cache
// efficiency, per-user failures, and storage breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics.

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedgen_sessions_total",
			Help: "Total number of feed generation sessions by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "cancelled"
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedgen_session_duration_seconds",
			Help:    "End-to-end duration of a feed generation session",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedgen_step_duration_seconds",
			Help:    "Duration of individual pipeline steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"}, // "load", "score", "pools", "rank", "export", "ttl"
	)

	// Feed metrics.

	FeedsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedgen_feeds_generated_total",
			Help: "Total number of per-user feeds generated by condition",
		},
		[]string{"condition"},
	)

	UserFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedgen_user_failures_total",
			Help: "Per-user pipeline failures by reason",
		},
		[]string{"reason"}, // "invalid_pool", "underlong_feed", "other"
	)

	PostsRanked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedgen_posts_in_corpus",
			Help: "Deduplicated, filtered posts entering the last session",
		},
	)

	// Scorer metrics.

	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedgen_score_cache_hits_total",
			Help: "Posts scored from the cached score table",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedgen_score_cache_misses_total",
			Help: "Posts scored fresh this session",
		},
	)

	// Storage metrics.

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedgen_storage_errors_total",
			Help: "Storage operation failures by operation",
		},
		[]string{"op"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedgen_warehouse_breaker_state",
			Help: "Warehouse circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
