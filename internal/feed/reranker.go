// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// Reranker applies the business rules to a ranked candidate list in fixed
// order: clip to the preprocessing window, bound recycled URIs, truncate,
// jitter, validate length. Stateless; the RNG is supplied per call so
// workers never share one.
type Reranker struct {
	cfg *config.Config
}

// NewReranker creates a reranker.
func NewReranker(cfg *config.Config) *Reranker {
	return &Reranker{cfg: cfg}
}

// Rerank transforms the ranked candidates into the final feed items.
// previous holds the URIs of this user's previous feed; an empty set skips
// the recycling bound. Returns ErrUnderlongFeed when the surviving candidates
// cannot fill the configured feed length.
func (r *Reranker) Rerank(items []RankedItem, previous map[string]struct{}, rng *rand.Rand) ([]models.FeedItem, error) {
	window := r.cfg.PreprocessingWindow()
	if len(items) > window {
		items = items[:window]
	}

	items = r.enforceFreshContent(items, previous)

	if len(items) > r.cfg.Ranking.MaxFeedLength {
		items = items[:r.cfg.Ranking.MaxFeedLength]
	}

	feed := make([]models.FeedItem, len(items))
	for i, it := range items {
		feed[i] = models.FeedItem{URI: it.URI, IsInNetwork: it.IsInNetwork}
	}

	jitter(feed, r.cfg.Ranking.JitterAmount, rng)

	if len(feed) < r.cfg.Ranking.MaxFeedLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnderlongFeed, len(feed), r.cfg.Ranking.MaxFeedLength)
	}
	return feed, nil
}

// enforceFreshContent keeps every candidate absent from the previous feed and
// admits previously seen URIs only up to the recycling cap, preserving
// relative order.
func (r *Reranker) enforceFreshContent(items []RankedItem, previous map[string]struct{}) []RankedItem {
	if len(previous) == 0 {
		return items
	}

	maxOld := r.cfg.MaxOldPosts()
	out := make([]RankedItem, 0, len(items))
	old := 0
	for _, it := range items {
		if _, seen := previous[it.URI]; seen {
			if old >= maxOld {
				continue
			}
			old++
		}
		out = append(out, it)
	}
	return out
}

// jitter shifts each position from the end to the start by a uniform draw in
// [-amount, amount], clamped to the slice bounds. amount 0 is a no-op.
func jitter(feed []models.FeedItem, amount int, rng *rand.Rand) {
	if amount == 0 || len(feed) < 2 {
		return
	}

	n := len(feed)
	for i := n - 1; i >= 0; i-- {
		delta := rng.Intn(2*amount+1) - amount
		pos := i + delta
		if pos < 0 {
			pos = 0
		}
		if pos > n-1 {
			pos = n - 1
		}
		if pos == i {
			continue
		}

		item := feed[i]
		if pos < i {
			copy(feed[pos+1:i+1], feed[pos:i])
		} else {
			copy(feed[i:pos], feed[i+1:pos+1])
		}
		feed[pos] = item
	}
}

// userRNG derives a deterministic per-user RNG from the session seed so the
// worker-pool schedule never affects jitter output.
func userRNG(seed int64, userDID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(userDID))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64()))) //nolint:gosec // jitter needs reproducibility, not entropy
}
