// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// testConfig returns a validated config with a small feed geometry suitable
// for hand-checked fixtures.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Ranking.MaxFeedLength = 4
	cfg.Ranking.MaxAuthorPostsPerFeed = 3
	cfg.Ranking.MaxInNetworkPostsRatio = 0.5
	cfg.Ranking.MaxPropOldPosts = 0.6
	cfg.Ranking.FeedPreprocessingMultiplier = 2
	cfg.Ranking.JitterAmount = 0
	cfg.Pipeline.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("testConfig: %v", err)
	}
	return cfg
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// scored builds a ScoredPost fixture.
func scored(uri, authorDID string, source models.Source, engagement, treatment float64, sync time.Time) models.ScoredPost {
	return models.ScoredPost{
		Post: models.Post{
			URI:                    uri,
			AuthorDID:              authorDID,
			AuthorHandle:           authorDID + ".bsky.social",
			Source:                 source,
			SyncTimestamp:          sync,
			ConsolidationTimestamp: sync,
		},
		EngagementScore: engagement,
		TreatmentScore:  treatment,
	}
}

// uris extracts the URI sequence from feed items.
func uris(items []models.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.URI
	}
	return out
}

func sameURIs(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Fakes for the orchestrator's dependency surface.

type fakePosts struct {
	posts []models.Post
	err   error
}

func (f *fakePosts) LoadEnriched(_ context.Context, _ time.Time) ([]models.Post, error) {
	return f.posts, f.err
}

type fakeUsers struct {
	users []models.StudyUser
	err   error
}

func (f *fakeUsers) GetAll(_ context.Context, _ bool) ([]models.StudyUser, error) {
	return f.users, f.err
}

type fakeGraph struct {
	graph map[string][]string
	err   error
}

func (f *fakeGraph) Load(_ context.Context) (map[string][]string, error) {
	return f.graph, f.err
}

type fakeSuperposters struct {
	dids map[string]struct{}
}

func (f *fakeSuperposters) LoadLatest(_ context.Context) (map[string]struct{}, error) {
	if f.dids == nil {
		return map[string]struct{}{}, nil
	}
	return f.dids, nil
}

type fakeExclusions struct {
	excl models.Exclusions
}

func (f *fakeExclusions) Load(_ context.Context) (models.Exclusions, error) {
	return f.excl, nil
}

type fakeScores struct {
	cached  []models.PostScore
	loadErr error
	saved   [][]models.PostScore
	saveErr error
}

func (f *fakeScores) LoadCachedScores(_ context.Context, _ int) ([]models.PostScore, error) {
	return f.cached, f.loadErr
}

func (f *fakeScores) SaveScores(_ context.Context, scores []models.PostScore) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, scores)
	return nil
}

type fakeFeedStorage struct {
	previous map[string]map[string]struct{}

	writtenFeeds     []models.StoredFeed
	writtenAnalytics []models.SessionAnalytics
	writeErr         error
}

func (f *fakeFeedStorage) WriteFeeds(_ context.Context, feeds []models.StoredFeed, _ string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writtenFeeds = append(f.writtenFeeds, feeds...)
	return nil
}

func (f *fakeFeedStorage) WriteSessionAnalytics(_ context.Context, analytics models.SessionAnalytics, _ string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writtenAnalytics = append(f.writtenAnalytics, analytics)
	return nil
}

func (f *fakeFeedStorage) LoadPreviousFeedURIs(_ context.Context) (map[string]map[string]struct{}, error) {
	if f.previous == nil {
		return map[string]map[string]struct{}{}, nil
	}
	return f.previous, nil
}

type fakeTTL struct {
	calls int
	err   error
}

func (f *fakeTTL) MoveToCache(_ context.Context, _ int) error {
	f.calls++
	return f.err
}

type fakeMetadata struct {
	inserted []models.SessionAnalytics
	err      error
}

func (f *fakeMetadata) InsertSessionMetadata(_ context.Context, analytics models.SessionAnalytics) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, analytics)
	return nil
}

type fakeEvents struct {
	events []SessionCompletedEvent
	err    error
}

func (f *fakeEvents) PublishSessionCompleted(_ context.Context, event SessionCompletedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
