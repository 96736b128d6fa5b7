// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"time"

	"github.com/bskylab/feedgen/internal/models"
)

// The pipeline consumes every external coupling through the capability
// interfaces below. Concrete adapters (warehouse, Badger, Redis, file) are
// wired at the composition root so this package never imports a driver.

// PostProvider serves the enriched post corpus.
type PostProvider interface {
	// LoadEnriched returns posts with consolidation timestamps at or after
	// lookback, in storage order.
	LoadEnriched(ctx context.Context, lookback time.Time) ([]models.Post, error)
}

// StudyUserProvider serves the participant registry.
type StudyUserProvider interface {
	// GetAll returns the participant list. With testMode set only test
	// participants are returned.
	GetAll(ctx context.Context, testMode bool) ([]models.StudyUser, error)
}

// SocialGraphProvider serves the user-DID to followed-DID map.
type SocialGraphProvider interface {
	Load(ctx context.Context) (map[string][]string, error)
}

// SuperposterProvider serves the current set of superposter DIDs.
type SuperposterProvider interface {
	LoadLatest(ctx context.Context) (map[string]struct{}, error)
}

// ExclusionProvider serves the author exclusion lists.
type ExclusionProvider interface {
	Load(ctx context.Context) (models.Exclusions, error)
}

// ScoresRepository caches per-post scores across sessions.
type ScoresRepository interface {
	// LoadCachedScores returns rows within the lookback window,
	// deduplicated by URI keeping the latest scored timestamp, dropping
	// rows with either score unset. It degrades to an empty slice on
	// storage failure and never fails.
	LoadCachedScores(ctx context.Context, lookbackDays int) ([]models.PostScore, error)

	// SaveScores appends newly computed rows. No-op on empty input.
	SaveScores(ctx context.Context, scores []models.PostScore) error
}

// FeedStorage persists per-user feeds and per-session analytics.
type FeedStorage interface {
	WriteFeeds(ctx context.Context, feeds []models.StoredFeed, sessionTimestamp string) error
	WriteSessionAnalytics(ctx context.Context, analytics models.SessionAnalytics, sessionTimestamp string) error

	// LoadPreviousFeedURIs returns the URI sets of the most recent session's
	// feeds keyed by user DID, including the "default" key. An empty map
	// means no prior session exists.
	LoadPreviousFeedURIs(ctx context.Context) (map[string]map[string]struct{}, error)
}

// FeedTTL retires old feed artifacts to the cache tier.
type FeedTTL interface {
	// MoveToCache retains the newest keepCount sessions under the active
	// prefix and moves the rest to the cache tier.
	MoveToCache(ctx context.Context, keepCount int) error
}

// SessionMetadataStore records one row per completed session.
type SessionMetadataStore interface {
	InsertSessionMetadata(ctx context.Context, analytics models.SessionAnalytics) error
}

// EventPublisher announces completed sessions to downstream consumers.
// Publication failures are logged, never fatal.
type EventPublisher interface {
	PublishSessionCompleted(ctx context.Context, event SessionCompletedEvent) error
}

// SessionCompletedEvent is the payload published after a successful export.
type SessionCompletedEvent struct {
	RunID            string                  `json:"run_id"`
	SessionTimestamp string                  `json:"session_timestamp"`
	Analytics        models.SessionAnalytics `json:"analytics"`
}
