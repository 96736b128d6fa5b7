// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

import "time"

// Source identifies how a post entered the candidate corpus.
type Source string

const (
	// SourceFirehose marks posts captured from the event stream, filtered to
	// authors followed by at least one study participant.
	SourceFirehose Source = "firehose"

	// SourceMostLiked marks popular posts sampled from the whole network.
	SourceMostLiked Source = "most_liked"
)

// PerspectiveLabels holds the Perspective API probabilities attached to a
// post during enrichment. ProbConstructive may be missing even when the
// labeling run succeeded; the scorer imputes ProbReasoning in its place.
type PerspectiveLabels struct {
	ProbToxic        float64
	ProbConstructive Opt[float64]
	ProbReasoning    float64
}

// Post is one enriched post, the unit of ranking. URI is the primary key;
// within a session URIs are unique after deduplication.
type Post struct {
	URI          string
	AuthorDID    string
	AuthorHandle string
	Text         string
	Source       Source

	// SyncTimestamp is when the post entered the system (drives freshness).
	SyncTimestamp time.Time

	// ConsolidationTimestamp is when the enrichment record was produced
	// (drives the dedup tiebreak: latest wins).
	ConsolidationTimestamp time.Time

	// LikeCount may be missing for firehose posts.
	LikeCount Opt[int64]

	// SimilarityScore in [0,1] is similarity to the popular-post centroid.
	SimilarityScore Opt[float64]

	// Sociopolitical is present only when the sociopolitical labeling run
	// succeeded. A missing value is treated as non-sociopolitical.
	Sociopolitical Opt[bool]

	// Perspective is present only when the perspective labeling run succeeded.
	Perspective Opt[PerspectiveLabels]
}

// IsSociopolitical reports whether the post was successfully labeled as
// sociopolitical. Unlabeled posts are non-sociopolitical by definition.
func (p *Post) IsSociopolitical() bool {
	v, ok := p.Sociopolitical.Get()
	return ok && v
}

// ScoredPost is a post augmented with its two per-algorithm scores.
// Both scores are non-negative.
type ScoredPost struct {
	Post

	EngagementScore float64
	TreatmentScore  float64
}

// CandidatePools holds the three sorted, per-author-capped candidate pools
// one session draws every user feed from.
type CandidatePools struct {
	// ReverseChronological contains firehose posts only, newest first.
	ReverseChronological []ScoredPost

	// Engagement contains all sources sorted by engagement score descending.
	Engagement []ScoredPost

	// Treatment contains all sources sorted by treatment score descending.
	Treatment []ScoredPost
}

// ForCondition returns the pool backing the given experimental condition.
func (c *CandidatePools) ForCondition(cond Condition) []ScoredPost {
	switch cond {
	case ConditionEngagement:
		return c.Engagement
	case ConditionRepresentativeDiversification:
		return c.Treatment
	default:
		return c.ReverseChronological
	}
}

// Exclusions holds the author exclusion lists applied while loading posts.
type Exclusions struct {
	HandlesExcluded map[string]struct{}
	DIDsExcluded    map[string]struct{}
}

// Excludes reports whether the post's author is on either exclusion list.
func (e *Exclusions) Excludes(p *Post) bool {
	if _, ok := e.HandlesExcluded[p.AuthorHandle]; ok {
		return true
	}
	_, ok := e.DIDsExcluded[p.AuthorDID]
	return ok
}
