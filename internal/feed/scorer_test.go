// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

const scoreTolerance = 1e-9

func newTestScorer(t *testing.T, cfg *config.Config, repo ScoresRepository, now time.Time) *Scorer {
	t.Helper()
	if repo == nil {
		repo = &fakeScores{}
	}
	s := NewScorer(cfg, repo, nopLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestScorerFreshness(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		mode     string
		ageHours float64
		want     float64
	}{
		{"linear new post", config.FreshnessModeLinear, 0, 3.0},
		{"linear mid window", config.FreshnessModeLinear, 8, 3.0 - 0.125*8},
		{"linear clamped at window", config.FreshnessModeLinear, 48, 0},
		{"exponential new post", config.FreshnessModeExponential, 0, 3.0},
		{"exponential one hour", config.FreshnessModeExponential, 1, 3.0 * 0.95},
		{"exponential clamped", config.FreshnessModeExponential, 48, 3.0 * math.Pow(0.95, 24)},
		{"future sync clamps to zero age", config.FreshnessModeExponential, -2, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Scoring.FreshnessMode = tt.mode
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}

			s := newTestScorer(t, cfg, nil, now)
			p := models.Post{SyncTimestamp: now.Add(-time.Duration(tt.ageHours * float64(time.Hour)))}

			got := s.freshness(&p, now)
			if math.Abs(got-tt.want) > scoreTolerance {
				t.Errorf("freshness = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorerLikeability(t *testing.T) {
	tests := []struct {
		name string
		post models.Post
		want float64
	}{
		{
			name: "like count present",
			post: models.Post{LikeCount: models.Some[int64](41)},
			want: math.Log(42),
		},
		{
			name: "similarity fallback",
			post: models.Post{SimilarityScore: models.Some(0.5)},
			want: math.Log(100*0.5 + 1),
		},
		{
			name: "default fallback",
			post: models.Post{},
			want: math.Log(100*0.8 + 1),
		},
		{
			name: "negative like count falls through",
			post: models.Post{LikeCount: models.Some[int64](-3), SimilarityScore: models.Some(0.5)},
			want: math.Log(100*0.5 + 1),
		},
	}

	cfg := testConfig(t)
	s := newTestScorer(t, cfg, nil, time.Now())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.likeability(&tt.post)
			if math.Abs(got-tt.want) > scoreTolerance {
				t.Errorf("likeability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorerTreatmentMultiplier(t *testing.T) {
	labeled := func(toxic float64, constructive models.Opt[float64], reasoning float64) models.Post {
		return models.Post{
			Sociopolitical: models.Some(true),
			Perspective: models.Some(models.PerspectiveLabels{
				ProbToxic:        toxic,
				ProbConstructive: constructive,
				ProbReasoning:    reasoning,
			}),
		}
	}

	tests := []struct {
		name        string
		post        models.Post
		superposter bool
		want        float64
	}{
		{
			name: "plain post",
			post: models.Post{},
			want: 1.0,
		},
		{
			name:        "superposter penalty",
			post:        models.Post{},
			superposter: true,
			want:        0.95,
		},
		{
			name: "sociopolitical ratio",
			post: labeled(0.5, models.Some(0.8), 0.2),
			want: (1.02*0.8 + 0.2) / (0.965 * 0.5),
		},
		{
			name: "constructive imputed from reasoning",
			post: labeled(0.5, models.None[float64](), 0.2),
			want: (1.02*0.2 + 0.2) / (0.965 * 0.5),
		},
		{
			name: "zero toxicity denominator",
			post: labeled(0, models.Some(0.8), 0.2),
			want: 1.0,
		},
		{
			name: "unlabeled sociopolitical ignored",
			post: models.Post{Sociopolitical: models.None[bool](), Perspective: models.Some(models.PerspectiveLabels{ProbToxic: 0.9})},
			want: 1.0,
		},
		{
			name:        "superposter and ratio compose",
			post:        labeled(0.5, models.Some(0.8), 0.2),
			superposter: true,
			want:        0.95 * (1.02*0.8 + 0.2) / (0.965 * 0.5),
		},
	}

	cfg := testConfig(t)
	s := newTestScorer(t, cfg, nil, time.Now())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.treatmentMultiplier(&tt.post, tt.superposter)
			if math.Abs(got-tt.want) > scoreTolerance {
				t.Errorf("treatmentMultiplier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorerSuperposterRanksBelowPeer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t)
	s := newTestScorer(t, cfg, nil, now)

	posts := []models.Post{
		{URI: "peer", AuthorDID: "did:peer", SyncTimestamp: now, LikeCount: models.Some[int64](50)},
		{URI: "super", AuthorDID: "did:super", SyncTimestamp: now, LikeCount: models.Some[int64](50)},
	}
	superposters := map[string]struct{}{"did:super": {}}

	scored, _, err := s.Score(context.Background(), posts, superposters, false)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if scored[1].TreatmentScore >= scored[0].TreatmentScore {
		t.Errorf("superposter treatment %v, peer %v; want superposter strictly lower",
			scored[1].TreatmentScore, scored[0].TreatmentScore)
	}
	if math.Abs(scored[1].TreatmentScore-0.95*scored[0].TreatmentScore) > scoreTolerance {
		t.Errorf("superposter penalty not 0.95x: %v vs %v", scored[1].TreatmentScore, scored[0].TreatmentScore)
	}
	if scored[0].EngagementScore != scored[1].EngagementScore {
		t.Errorf("engagement scores should be unaffected by the penalty")
	}
}

func TestScorerCacheMerge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeScores{cached: []models.PostScore{
		{URI: "cached", EngagementScore: 7.5, TreatmentScore: 6.25},
	}}

	cfg := testConfig(t)
	s := newTestScorer(t, cfg, repo, now)

	posts := []models.Post{
		{URI: "cached", SyncTimestamp: now},
		{URI: "fresh", SyncTimestamp: now},
	}

	scored, newURIs, err := s.Score(context.Background(), posts, nil, true)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if scored[0].EngagementScore != 7.5 || scored[0].TreatmentScore != 6.25 {
		t.Errorf("cached post rescored: %+v", scored[0])
	}
	if len(newURIs) != 1 || newURIs[0] != "fresh" {
		t.Errorf("newURIs = %v, want [fresh]", newURIs)
	}
	if len(repo.saved) != 1 || len(repo.saved[0]) != 1 || repo.saved[0][0].URI != "fresh" {
		t.Errorf("saved = %v, want exactly the fresh row", repo.saved)
	}
}

func TestScorerSkipsSaveWhenDisabled(t *testing.T) {
	repo := &fakeScores{}
	cfg := testConfig(t)
	s := newTestScorer(t, cfg, repo, time.Now())

	_, _, err := s.Score(context.Background(), []models.Post{{URI: "p"}}, nil, false)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(repo.saved) != 0 {
		t.Errorf("scores saved with export disabled")
	}
}

func TestScorerDegradesOnCacheFailure(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeScores{loadErr: context.DeadlineExceeded}
	cfg := testConfig(t)
	s := newTestScorer(t, cfg, repo, now)

	scored, newURIs, err := s.Score(context.Background(), []models.Post{{URI: "p", SyncTimestamp: now}}, nil, false)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scored) != 1 || len(newURIs) != 1 {
		t.Errorf("expected everything scored fresh, got %d scored, %d new", len(scored), len(newURIs))
	}
}

func TestScorerDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t)

	posts := []models.Post{
		{URI: "a", SyncTimestamp: now.Add(-3 * time.Hour), LikeCount: models.Some[int64](10)},
		{URI: "b", SyncTimestamp: now.Add(-6 * time.Hour), SimilarityScore: models.Some(0.4)},
	}

	first, _, err := newTestScorer(t, cfg, nil, now).Score(context.Background(), posts, nil, false)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, _, err := newTestScorer(t, cfg, nil, now).Score(context.Background(), posts, nil, false)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	for i := range first {
		if first[i].EngagementScore != second[i].EngagementScore || first[i].TreatmentScore != second[i].TreatmentScore {
			t.Errorf("post %s scored differently across runs", first[i].URI)
		}
	}
}
