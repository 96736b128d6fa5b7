// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"fmt"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// RankedItem is one ranked candidate before reranking. AuthorDID is carried
// for diagnostics only; the persisted feed keeps just URI and membership.
type RankedItem struct {
	URI         string
	AuthorDID   string
	IsInNetwork bool
}

// Ranker builds per-user ordered candidate lists from a pool and the user's
// in-network URI set. It is stateless and safe for concurrent use.
type Ranker struct {
	cfg *config.Config
}

// NewRanker creates a ranker.
func NewRanker(cfg *config.Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank produces the ordered candidate list for one user: capped in-network
// posts first, then condition-filtered out-of-network posts, each segment
// preserving pool order. The result is longer than the final feed; the
// reranker truncates.
func (r *Ranker) Rank(cond models.Condition, pool []models.ScoredPost, inNetwork map[string]struct{}) ([]RankedItem, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: empty %s pool", ErrInvalidCandidatePool, cond)
	}

	// Conditions backed by scored pools fill out-of-network slots from the
	// popular sample; reverse-chronological stays on the firehose.
	outSource := models.SourceFirehose
	if cond == models.ConditionEngagement || cond == models.ConditionRepresentativeDiversification {
		outSource = models.SourceMostLiked
	}

	in := make([]RankedItem, 0, len(inNetwork))
	out := make([]RankedItem, 0, len(pool))
	maxIn := r.cfg.MaxInNetworkPosts()

	for i := range pool {
		p := &pool[i]
		if _, ok := inNetwork[p.URI]; ok {
			if len(in) < maxIn {
				in = append(in, RankedItem{URI: p.URI, AuthorDID: p.AuthorDID, IsInNetwork: true})
			}
			continue
		}
		if p.Source == outSource {
			out = append(out, RankedItem{URI: p.URI, AuthorDID: p.AuthorDID})
		}
	}

	if len(in) == 0 {
		return out, nil
	}
	return append(in, out...), nil
}
