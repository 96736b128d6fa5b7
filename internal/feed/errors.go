// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import "errors"

var (
	// ErrInvalidCandidatePool is returned when a user's condition selects an
	// empty or missing candidate pool.
	ErrInvalidCandidatePool = errors.New("invalid candidate pool")

	// ErrUnderlongFeed is returned when reranking leaves fewer items than
	// the configured feed length. The upstream candidate window was too
	// small; the user is failed rather than handed a short feed.
	ErrUnderlongFeed = errors.New("feed shorter than configured length")
)
