// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
)

// SessionMetadataRepo records one warehouse row per completed session, the
// durable audit trail behind the Badger artifacts.
type SessionMetadataRepo struct {
	warehouse *Warehouse
	logger    zerolog.Logger
}

// NewSessionMetadataRepo creates a session metadata repository.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSessionMetadataRepo(warehouse *Warehouse, logger zerolog.Logger) *SessionMetadataRepo {
	return &SessionMetadataRepo{
		warehouse: warehouse,
		logger:    logger.With().Str("component", "session_metadata").Logger(),
	}
}

// InsertSessionMetadata appends the session's aggregate row.
func (r *SessionMetadataRepo) InsertSessionMetadata(ctx context.Context, analytics models.SessionAnalytics) error {
	const stmt = `
		INSERT INTO session_metadata (
			session_timestamp, total_feeds, total_posts,
			total_in_network_posts, total_in_network_posts_prop,
			total_unique_engagement_uris, total_unique_treatment_uris,
			prop_overlap_treatment_uris_in_engagement_uris,
			prop_overlap_engagement_uris_in_treatment_uris,
			inserted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := r.warehouse.Exec(ctx, stmt,
		analytics.SessionTimestamp,
		analytics.TotalFeeds,
		analytics.TotalPosts,
		analytics.TotalInNetworkPosts,
		analytics.TotalInNetworkPostsProp,
		analytics.TotalUniqueEngagementURIs,
		analytics.TotalUniqueTreatmentURIs,
		analytics.PropOverlapTreatmentInEngagement,
		analytics.PropOverlapEngagementInTreatment,
		time.Now().UTC(),
	)
	if err != nil {
		return NewStorageError("session_metadata", err)
	}

	r.logger.Debug().Str("session_timestamp", analytics.SessionTimestamp).Msg("inserted session metadata")
	return nil
}
