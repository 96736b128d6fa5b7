// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"testing"
	"time"

	"github.com/bskylab/feedgen/internal/models"
)

func TestDataLoaderDedupKeepsLatestConsolidation(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	posts := &fakePosts{posts: []models.Post{
		{URI: "X", AuthorDID: "a", AuthorHandle: "a.bsky.social", Text: "stale", ConsolidationTimestamp: day1},
		{URI: "X", AuthorDID: "a", AuthorHandle: "a.bsky.social", Text: "fresh", ConsolidationTimestamp: day2},
	}}

	loader := NewDataLoader(posts, &fakeExclusions{}, testConfig(t), nopLogger())
	got, err := loader.Load(context.Background(), day2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d posts, want 1", len(got))
	}
	if got[0].Text != "fresh" {
		t.Errorf("kept %q, want the later consolidation row", got[0].Text)
	}
}

func TestDataLoaderDedupPreservesFirstAppearanceOrder(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &fakePosts{posts: []models.Post{
		{URI: "A", ConsolidationTimestamp: now},
		{URI: "B", ConsolidationTimestamp: now},
		{URI: "A", ConsolidationTimestamp: now.Add(time.Hour)},
		{URI: "C", ConsolidationTimestamp: now},
	}}

	loader := NewDataLoader(posts, &fakeExclusions{}, testConfig(t), nopLogger())
	got, err := loader.Load(context.Background(), now)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"A", "B", "C"}
	for i, p := range got {
		if p.URI != want[i] {
			t.Fatalf("position %d = %q, want %q", i, p.URI, want[i])
		}
	}
}

func TestDataLoaderAppliesExclusionLists(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &fakePosts{posts: []models.Post{
		{URI: "p1", AuthorHandle: "bad.bsky.social", AuthorDID: "did:bad", ConsolidationTimestamp: now},
		{URI: "p2", AuthorHandle: "bad.bsky.social", AuthorDID: "did:bad", ConsolidationTimestamp: now},
		{URI: "p3", AuthorHandle: "good.bsky.social", AuthorDID: "did:good", ConsolidationTimestamp: now},
	}}
	excl := &fakeExclusions{excl: models.Exclusions{
		HandlesExcluded: map[string]struct{}{"bad.bsky.social": {}},
	}}

	loader := NewDataLoader(posts, excl, testConfig(t), nopLogger())
	got, err := loader.Load(context.Background(), now)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got) != 1 || got[0].URI != "p3" {
		t.Fatalf("got %v, want only p3", got)
	}
}

func TestDataLoaderExcludesByDID(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &fakePosts{posts: []models.Post{
		{URI: "p1", AuthorDID: "did:spam", ConsolidationTimestamp: now},
		{URI: "p2", AuthorDID: "did:ok", ConsolidationTimestamp: now},
	}}
	excl := &fakeExclusions{excl: models.Exclusions{
		DIDsExcluded: map[string]struct{}{"did:spam": {}},
	}}

	loader := NewDataLoader(posts, excl, testConfig(t), nopLogger())
	got, err := loader.Load(context.Background(), now)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got) != 1 || got[0].URI != "p2" {
		t.Fatalf("got %v, want only p2", got)
	}
}
