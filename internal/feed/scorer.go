// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/metrics"
	"github.com/bskylab/feedgen/internal/models"
)

// Scorer computes the per-post (engagement, treatment) score pair, merging
// with the cached score table. Scoring is a pure function of the post, the
// superposter set and the configuration; the cache merge copies rather than
// mutates, and the write-back happens once, centrally, after all posts are
// scored.
type Scorer struct {
	cfg    *config.Config
	scores ScoresRepository
	logger zerolog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewScorer creates a scorer backed by the cached score repository.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(cfg *config.Config, scores ScoresRepository, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		scores: scores,
		logger: logger.With().Str("component", "scorer").Logger(),
		now:    time.Now,
	}
}

// Score returns the input posts augmented with both scores, plus the URIs
// that were scored fresh this session. With saveNew set, fresh scores are
// persisted before returning.
func (s *Scorer) Score(ctx context.Context, posts []models.Post, superposters map[string]struct{}, saveNew bool) ([]models.ScoredPost, []string, error) {
	cache := s.loadCache(ctx)
	now := s.now()

	scored := make([]models.ScoredPost, 0, len(posts))
	newURIs := make([]string, 0, len(posts))
	fresh := make([]models.PostScore, 0, len(posts))

	for i := range posts {
		p := &posts[i]

		pair, hit := cache[p.URI]
		if hit {
			metrics.ScoreCacheHits.Inc()
		} else {
			metrics.ScoreCacheMisses.Inc()
			_, super := superposters[p.AuthorDID]
			pair = s.scorePost(p, super, now)
			newURIs = append(newURIs, p.URI)
			fresh = append(fresh, models.PostScore{
				URI:             p.URI,
				EngagementScore: pair.Engagement,
				TreatmentScore:  pair.Treatment,
				ScoredAt:        now,
			})
		}

		scored = append(scored, models.ScoredPost{
			Post:            *p,
			EngagementScore: pair.Engagement,
			TreatmentScore:  pair.Treatment,
		})
	}

	if saveNew && len(fresh) > 0 {
		if err := s.scores.SaveScores(ctx, fresh); err != nil {
			return nil, nil, fmt.Errorf("save new scores: %w", err)
		}
	}

	s.logger.Info().
		Int("posts", len(posts)).
		Int("cached", len(posts)-len(newURIs)).
		Int("fresh", len(newURIs)).
		Msg("scored post corpus")

	return scored, newURIs, nil
}

// loadCache fetches the cached score map. The repository degrades to an
// empty result on storage failure, so a miss here only costs recomputation.
func (s *Scorer) loadCache(ctx context.Context) map[string]models.ScorePair {
	rows, err := s.scores.LoadCachedScores(ctx, s.cfg.Scoring.ScoringLookbackDays)
	if err != nil {
		s.logger.Warn().Err(err).Msg("score cache unavailable, scoring everything fresh")
		return map[string]models.ScorePair{}
	}

	cache := make(map[string]models.ScorePair, len(rows))
	for _, r := range rows {
		cache[r.URI] = models.ScorePair{Engagement: r.EngagementScore, Treatment: r.TreatmentScore}
	}
	return cache
}

// scorePost computes both scores for one post.
func (s *Scorer) scorePost(p *models.Post, superposter bool, now time.Time) models.ScorePair {
	freshness := s.freshness(p, now)
	likeability := s.likeability(p)
	base := likeability + freshness

	return models.ScorePair{
		Engagement: base * s.cfg.Scoring.EngagementCoef,
		Treatment:  base * s.treatmentMultiplier(p, superposter),
	}
}

// postAgeHours returns the post's age in hours, clamped to the lookback
// window and never negative.
func (s *Scorer) postAgeHours(p *models.Post, now time.Time) float64 {
	age := now.Sub(p.SyncTimestamp).Hours()
	if age < 0 {
		age = 0
	}
	maxAge := float64(s.cfg.Scoring.LookbackDays) * 24
	if age > maxAge {
		age = maxAge
	}
	return age
}

// freshness computes the configured decay curve over the clamped post age.
func (s *Scorer) freshness(p *models.Post, now time.Time) float64 {
	age := s.postAgeHours(p, now)
	sc := &s.cfg.Scoring

	if sc.FreshnessMode == config.FreshnessModeLinear {
		f := sc.DefaultMaxFreshnessScore - sc.FreshnessDecayRatio*age
		if f < 0 {
			return 0
		}
		return f
	}

	return sc.DefaultMaxFreshnessScore * math.Pow(sc.FreshnessExponentialBase*sc.FreshnessLambdaFactor, age)
}

// likeability is ln(effective_likes + 1). Firehose posts usually have no
// like count; they fall back to the popular-post average scaled by the
// similarity score, then by the configured default similarity.
func (s *Scorer) likeability(p *models.Post) float64 {
	sc := &s.cfg.Scoring

	effective := sc.AveragePopularPostLikeCount * sc.DefaultSimilarityScore
	if likes, ok := p.LikeCount.Get(); ok && likes >= 0 {
		effective = float64(likes)
	} else if sim, ok := p.SimilarityScore.Get(); ok && !math.IsNaN(sim) {
		effective = sc.AveragePopularPostLikeCount * sim
	}

	return math.Log(effective + 1)
}

// treatmentMultiplier combines the superposter penalty with the
// sociopolitical quality ratio. Posts whose sociopolitical labeling failed
// are treated as non-sociopolitical.
func (s *Scorer) treatmentMultiplier(p *models.Post, superposter bool) float64 {
	sc := &s.cfg.Scoring

	multiplier := 1.0
	if superposter {
		multiplier *= sc.SuperposterCoef
	}

	persp, labeled := p.Perspective.Get()
	if !p.IsSociopolitical() || !labeled {
		return multiplier
	}

	// Constructive-endpoint fix: the enrichment service intermittently drops
	// prob_constructive; impute prob_reasoning in its place.
	constructive := persp.ProbConstructive.Or(persp.ProbReasoning)
	if math.IsNaN(constructive) {
		constructive = persp.ProbReasoning
	}

	denominator := sc.CoefToxicity * persp.ProbToxic
	ratio := 1.0
	if denominator != 0 {
		ratio = (sc.CoefConstructiveness*constructive + persp.ProbReasoning) / denominator
	}

	return multiplier * ratio
}
