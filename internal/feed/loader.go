// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// DataLoader fetches the enriched post corpus for one session, deduplicates
// it by URI, and applies the author exclusion lists.
type DataLoader struct {
	posts      PostProvider
	exclusions ExclusionProvider
	cfg        *config.Config
	logger     zerolog.Logger
}

// NewDataLoader creates a data loader over the given providers.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDataLoader(posts PostProvider, exclusions ExclusionProvider, cfg *config.Config, logger zerolog.Logger) *DataLoader {
	return &DataLoader{
		posts:      posts,
		exclusions: exclusions,
		cfg:        cfg,
		logger:     logger.With().Str("component", "loader").Logger(),
	}
}

// Load returns the deduplicated, exclusion-filtered post corpus with
// consolidation timestamps inside the lookback window ending at now.
func (l *DataLoader) Load(ctx context.Context, now time.Time) ([]models.Post, error) {
	lookback := now.Add(-time.Duration(l.cfg.Scoring.LookbackDays) * 24 * time.Hour)

	posts, err := l.posts.LoadEnriched(ctx, lookback)
	if err != nil {
		return nil, fmt.Errorf("load enriched posts: %w", err)
	}

	excl, err := l.exclusions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusion lists: %w", err)
	}

	deduped := dedupeByURI(posts)
	filtered := make([]models.Post, 0, len(deduped))
	excluded := 0
	for i := range deduped {
		if excl.Excludes(&deduped[i]) {
			excluded++
			continue
		}
		filtered = append(filtered, deduped[i])
	}

	l.logger.Info().
		Int("fetched", len(posts)).
		Int("deduplicated", len(deduped)).
		Int("excluded", excluded).
		Msg("loaded post corpus")

	return filtered, nil
}

// dedupeByURI collapses duplicate URIs, keeping the row with the latest
// consolidation timestamp. Output order follows the first appearance of each
// URI in the input.
func dedupeByURI(posts []models.Post) []models.Post {
	best := make(map[string]int, len(posts))
	order := make([]string, 0, len(posts))

	for i := range posts {
		uri := posts[i].URI
		j, seen := best[uri]
		if !seen {
			best[uri] = i
			order = append(order, uri)
			continue
		}
		if posts[i].ConsolidationTimestamp.After(posts[j].ConsolidationTimestamp) {
			best[uri] = i
		}
	}

	out := make([]models.Post, 0, len(order))
	for _, uri := range order {
		out = append(out, posts[best[uri]])
	}
	return out
}
