// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package feed implements the feed generation pipeline: loading and
// deduplicating the enriched post corpus, two-algorithm scoring with a
// cached-score merge, candidate pool construction, per-user ranking and
// reranking, feed statistics, and the session orchestrator that ties the
// steps together.
//
// One session runs the steps in a fixed order. Steps up to candidate pool
// construction are sequential; per-user feed generation fans out to a
// bounded worker pool (every input it reads is immutable by then); export,
// TTL and session metadata are sequential again.
//
// The package performs no I/O of its own apart from the repository and
// provider interfaces declared in interfaces.go; concrete adapters live in
// internal/providers and internal/storage and are wired at the composition
// root.
package feed
