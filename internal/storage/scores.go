// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
)

// ScoresRepo caches per-post scores in the warehouse. Reads degrade to an
// empty result on failure so a warehouse outage only costs recomputation;
// writes surface a StorageError.
type ScoresRepo struct {
	warehouse *Warehouse
	logger    zerolog.Logger
}

// NewScoresRepo creates a score repository over the warehouse.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScoresRepo(warehouse *Warehouse, logger zerolog.Logger) *ScoresRepo {
	return &ScoresRepo{
		warehouse: warehouse,
		logger:    logger.With().Str("component", "scores_repo").Logger(),
	}
}

// LoadCachedScores returns rows within the lookback window, one per URI
// keeping the latest scored timestamp, dropping rows with either score null.
// Never fails: storage errors degrade to an empty slice.
func (r *ScoresRepo) LoadCachedScores(ctx context.Context, lookbackDays int) ([]models.PostScore, error) {
	const query = `
		SELECT uri, engagement_score, treatment_score, scored_timestamp
		FROM post_scores
		WHERE scored_timestamp >= now() - INTERVAL (?) DAY
		  AND engagement_score IS NOT NULL
		  AND treatment_score IS NOT NULL
		QUALIFY ROW_NUMBER() OVER (PARTITION BY uri ORDER BY scored_timestamp DESC) = 1`

	rows, err := r.warehouse.Query(ctx, query, lookbackDays)
	if err != nil {
		r.logger.Warn().Err(err).Msg("cached score read failed, degrading to empty cache")
		return nil, nil
	}
	defer rows.Close()

	var out []models.PostScore
	for rows.Next() {
		var s models.PostScore
		if err := rows.Scan(&s.URI, &s.EngagementScore, &s.TreatmentScore, &s.ScoredAt); err != nil {
			r.logger.Warn().Err(err).Msg("cached score row scan failed, degrading to empty cache")
			return nil, nil
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("cached score iteration failed, degrading to empty cache")
		return nil, nil
	}
	return out, nil
}

// SaveScores appends the given rows in one transaction. No-op on empty input.
func (r *ScoresRepo) SaveScores(ctx context.Context, scores []models.PostScore) error {
	if len(scores) == 0 {
		return nil
	}

	err := r.warehouse.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO post_scores (uri, engagement_score, treatment_score, scored_timestamp) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare score insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range scores {
			if _, err := stmt.ExecContext(ctx, s.URI, s.EngagementScore, s.TreatmentScore, s.ScoredAt); err != nil {
				return fmt.Errorf("insert score for %s: %w", s.URI, err)
			}
		}
		return nil
	})
	if err != nil {
		return NewStorageError("save_scores", err)
	}

	r.logger.Debug().Int("rows", len(scores)).Msg("saved new scores")
	return nil
}
