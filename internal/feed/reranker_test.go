// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"errors"
	"math/rand"
	"testing"
)

func mkItems(uriList ...string) []RankedItem {
	out := make([]RankedItem, len(uriList))
	for i, uri := range uriList {
		out[i] = RankedItem{URI: uri}
	}
	return out
}

func uriSet(uriList []string) map[string]struct{} {
	out := make(map[string]struct{}, len(uriList))
	for _, uri := range uriList {
		out[uri] = struct{}{}
	}
	return out
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1)) //nolint:gosec // fixed seed for reproducible tests
}

func TestRerankerHappyPath(t *testing.T) {
	r := NewReranker(testConfig(t)) // feed length 4, jitter 0

	got, err := r.Rerank(mkItems("a", "b", "c", "d", "e", "f"), nil, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if !sameURIs(uris(got), []string{"a", "b", "c", "d"}) {
		t.Errorf("feed = %v, want truncation to the first four", uris(got))
	}
}

func TestRerankerRecyclingCapFailsUser(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 0.5 // max old = floor(4 * 0.5) = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	// P1 and P2 hit the recycling cap, P3 is dropped, P4 is the only fresh
	// candidate. Three survivors cannot fill a four-item feed.
	previous := uriSet([]string{"P1", "P2", "P3"})
	_, err := r.Rerank(mkItems("P1", "P2", "P3", "P4"), previous, testRNG())
	if !errors.Is(err, ErrUnderlongFeed) {
		t.Fatalf("err = %v, want ErrUnderlongFeed", err)
	}
}

func TestRerankerRecyclingCapAdmitsUpToLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 0.5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	previous := uriSet([]string{"P1", "P2", "P3"})
	got, err := r.Rerank(mkItems("P1", "P2", "P3", "P4", "P5", "P6"), previous, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if !sameURIs(uris(got), []string{"P1", "P2", "P4", "P5"}) {
		t.Errorf("feed = %v, want two old then the fresh candidates", uris(got))
	}
}

func TestRerankerZeroOldPosts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	previous := uriSet([]string{"a", "b"})
	got, err := r.Rerank(mkItems("a", "b", "c", "d", "e", "f"), previous, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	for _, it := range got {
		if _, seen := previous[it.URI]; seen {
			t.Errorf("previous URI %s admitted with max_prop_old_posts = 0", it.URI)
		}
	}
}

func TestRerankerEmptyPreviousPassesThrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	// A zero cap with no previous feed must not drop anything.
	got, err := r.Rerank(mkItems("a", "b", "c", "d"), nil, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("feed length = %d, want 4", len(got))
	}
}

func TestRerankerClipsToPreprocessingWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 0.5 // max old = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	// Window = 4 * 2 = 8. Candidates 1..8 are old; fresh content only exists
	// beyond the window and must not be reachable.
	items := mkItems("o1", "o2", "o3", "o4", "o5", "o6", "o7", "o8", "fresh1", "fresh2")
	previous := uriSet([]string{"o1", "o2", "o3", "o4", "o5", "o6", "o7", "o8"})

	_, err := r.Rerank(items, previous, testRNG())
	if !errors.Is(err, ErrUnderlongFeed) {
		t.Fatalf("err = %v, want ErrUnderlongFeed (fresh posts lie outside the window)", err)
	}
}

func TestRerankerUnderlongInput(t *testing.T) {
	r := NewReranker(testConfig(t))
	_, err := r.Rerank(mkItems("a", "b"), nil, testRNG())
	if !errors.Is(err, ErrUnderlongFeed) {
		t.Fatalf("err = %v, want ErrUnderlongFeed", err)
	}
}

func TestJitterZeroIsNoop(t *testing.T) {
	r := NewReranker(testConfig(t)) // jitter 0

	got, err := r.Rerank(mkItems("a", "b", "c", "d"), nil, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if !sameURIs(uris(got), []string{"a", "b", "c", "d"}) {
		t.Errorf("jitter 0 reordered the feed: %v", uris(got))
	}
}

func TestJitterPreservesLengthAndMembership(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxFeedLength = 10
	cfg.Ranking.JitterAmount = 3
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	input := mkItems("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	got, err := r.Rerank(input, nil, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	if len(got) != 10 {
		t.Fatalf("length = %d, want 10", len(got))
	}
	seen := uriSet(uris(got))
	for _, it := range input {
		if _, ok := seen[it.URI]; !ok {
			t.Errorf("jitter lost %s", it.URI)
		}
	}
}

func TestJitterDeterministicForSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxFeedLength = 10
	cfg.Ranking.JitterAmount = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	input := mkItems("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")

	first, err := r.Rerank(input, nil, userRNG(42, "did:u1"))
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	second, err := r.Rerank(input, nil, userRNG(42, "did:u1"))
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	if !sameURIs(uris(first), uris(second)) {
		t.Errorf("same seed produced different orders:\n%v\n%v", uris(first), uris(second))
	}
}

func TestRerankerIdempotentOnOwnOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ranking.MaxPropOldPosts = 1.0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := NewReranker(cfg)

	first, err := r.Rerank(mkItems("a", "b", "c", "d", "e"), nil, testRNG())
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}

	again := make([]RankedItem, len(first))
	for i, it := range first {
		again[i] = RankedItem{URI: it.URI, IsInNetwork: it.IsInNetwork}
	}
	second, err := r.Rerank(again, uriSet(uris(first)), testRNG())
	if err != nil {
		t.Fatalf("Rerank on own output: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("length changed on reapplication: %d vs %d", len(second), len(first))
	}
}
