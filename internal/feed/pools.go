// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// PoolBuilder produces the three sorted, per-author-capped candidate pools
// for one session.
type PoolBuilder struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewPoolBuilder creates a pool builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPoolBuilder(cfg *config.Config, logger zerolog.Logger) *PoolBuilder {
	return &PoolBuilder{
		cfg:    cfg,
		logger: logger.With().Str("component", "pools").Logger(),
	}
}

// Build constructs the three pools from the scored corpus. Each pool is an
// independent copy; sorting is stable so ties keep corpus order.
func (b *PoolBuilder) Build(posts []models.ScoredPost) models.CandidatePools {
	perAuthor := b.cfg.Ranking.MaxAuthorPostsPerFeed

	firehose := make([]models.ScoredPost, 0, len(posts))
	for i := range posts {
		if posts[i].Source == models.SourceFirehose {
			firehose = append(firehose, posts[i])
		}
	}
	sort.SliceStable(firehose, func(i, j int) bool {
		return firehose[i].SyncTimestamp.After(firehose[j].SyncTimestamp)
	})

	engagement := make([]models.ScoredPost, len(posts))
	copy(engagement, posts)
	sort.SliceStable(engagement, func(i, j int) bool {
		return engagement[i].EngagementScore > engagement[j].EngagementScore
	})

	treatment := make([]models.ScoredPost, len(posts))
	copy(treatment, posts)
	sort.SliceStable(treatment, func(i, j int) bool {
		return treatment[i].TreatmentScore > treatment[j].TreatmentScore
	})

	pools := models.CandidatePools{
		ReverseChronological: capByAuthor(firehose, perAuthor),
		Engagement:           capByAuthor(engagement, perAuthor),
		Treatment:            capByAuthor(treatment, perAuthor),
	}

	if len(pools.ReverseChronological) == 0 {
		b.logger.Warn().Msg("reverse-chronological pool is empty, no firehose posts in corpus")
	}

	b.logger.Info().
		Int("reverse_chronological", len(pools.ReverseChronological)).
		Int("engagement", len(pools.Engagement)).
		Int("treatment", len(pools.Treatment)).
		Msg("built candidate pools")

	return pools
}

// capByAuthor walks the sorted pool and keeps at most maxPerAuthor posts per
// author DID, dropping the rest.
func capByAuthor(pool []models.ScoredPost, maxPerAuthor int) []models.ScoredPost {
	counts := make(map[string]int, len(pool))
	out := make([]models.ScoredPost, 0, len(pool))
	for i := range pool {
		did := pool[i].AuthorDID
		if counts[did] >= maxPerAuthor {
			continue
		}
		counts[did]++
		out = append(out, pool[i])
	}
	return out
}
