// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package providers implements the read-side adapters the pipeline consumes:
// enriched posts and study users from the warehouse, the social graph from
// Redis, superposter sets from the local batch artifact or the warehouse,
// and the author exclusion lists from a YAML artifact.
package providers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
	"github.com/bskylab/feedgen/internal/storage"
)

// PostsProvider reads the enriched post corpus from the warehouse. The
// enriched_posts table is owned by the upstream enrichment service.
type PostsProvider struct {
	warehouse *storage.Warehouse
	logger    zerolog.Logger
}

// NewPostsProvider creates a posts provider.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPostsProvider(warehouse *storage.Warehouse, logger zerolog.Logger) *PostsProvider {
	return &PostsProvider{
		warehouse: warehouse,
		logger:    logger.With().Str("component", "posts_provider").Logger(),
	}
}

// LoadEnriched returns posts consolidated at or after lookback, in storage
// order.
func (p *PostsProvider) LoadEnriched(ctx context.Context, lookback time.Time) ([]models.Post, error) {
	const query = `
		SELECT
			uri, author_did, author_handle, text, source,
			synctimestamp, consolidation_timestamp,
			like_count, similarity_score,
			sociopolitical_was_successfully_labeled, is_sociopolitical,
			perspective_was_successfully_labeled, prob_toxic, prob_constructive, prob_reasoning
		FROM enriched_posts
		WHERE consolidation_timestamp >= ?`

	rows, err := p.warehouse.Query(ctx, query, lookback)
	if err != nil {
		return nil, fmt.Errorf("query enriched posts: %w", err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enriched post: %w", err)
		}
		out = append(out, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enriched posts: %w", err)
	}

	p.logger.Debug().Int("posts", len(out)).Time("lookback", lookback).Msg("loaded enriched posts")
	return out, nil
}

// scanPost maps one enriched row, folding the nullable label columns into
// optional values.
func scanPost(rows *sql.Rows) (models.Post, error) {
	var (
		post models.Post

		likeCount        sql.NullInt64
		similarity       sql.NullFloat64
		socioLabeled     sql.NullBool
		isSocio          sql.NullBool
		perspLabeled     sql.NullBool
		probToxic        sql.NullFloat64
		probConstructive sql.NullFloat64
		probReasoning    sql.NullFloat64
	)

	err := rows.Scan(
		&post.URI, &post.AuthorDID, &post.AuthorHandle, &post.Text, &post.Source,
		&post.SyncTimestamp, &post.ConsolidationTimestamp,
		&likeCount, &similarity,
		&socioLabeled, &isSocio,
		&perspLabeled, &probToxic, &probConstructive, &probReasoning,
	)
	if err != nil {
		return models.Post{}, err
	}

	if likeCount.Valid {
		post.LikeCount = models.Some(likeCount.Int64)
	}
	if similarity.Valid {
		post.SimilarityScore = models.Some(similarity.Float64)
	}
	if socioLabeled.Valid && socioLabeled.Bool && isSocio.Valid {
		post.Sociopolitical = models.Some(isSocio.Bool)
	}
	if perspLabeled.Valid && perspLabeled.Bool && probToxic.Valid && probReasoning.Valid {
		labels := models.PerspectiveLabels{
			ProbToxic:     probToxic.Float64,
			ProbReasoning: probReasoning.Float64,
		}
		if probConstructive.Valid {
			labels.ProbConstructive = models.Some(probConstructive.Float64)
		}
		post.Perspective = models.Some(labels)
	}

	return post, nil
}
