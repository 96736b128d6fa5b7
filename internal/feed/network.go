// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
)

// PersonalizationContext maps each study user to the set of in-network post
// URIs: firehose posts whose author the user follows. Built once per session
// and read-only afterwards, so per-user workers can share it.
type PersonalizationContext struct {
	inNetwork map[string]map[string]struct{}
}

// BuildPersonalizationContext joins the firehose subset of the scored corpus
// against the social graph. Users absent from the graph get an empty set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func BuildPersonalizationContext(posts []models.ScoredPost, graph map[string][]string, users []models.StudyUser, logger zerolog.Logger) *PersonalizationContext {
	log := logger.With().Str("component", "personalization").Logger()

	baseline := make([]models.ScoredPost, 0, len(posts))
	for i := range posts {
		if posts[i].Source == models.SourceFirehose {
			baseline = append(baseline, posts[i])
		}
	}
	if len(baseline) == 0 {
		log.Warn().Msg("no firehose posts in corpus, in-network sets will be empty")
	}

	ctx := &PersonalizationContext{
		inNetwork: make(map[string]map[string]struct{}, len(users)),
	}

	missing := 0
	for _, u := range users {
		followed, ok := graph[u.UserDID]
		if !ok {
			missing++
			ctx.inNetwork[u.UserDID] = map[string]struct{}{}
			continue
		}

		followedSet := make(map[string]struct{}, len(followed))
		for _, did := range followed {
			followedSet[did] = struct{}{}
		}

		uris := make(map[string]struct{})
		for i := range baseline {
			if _, ok := followedSet[baseline[i].AuthorDID]; ok {
				uris[baseline[i].URI] = struct{}{}
			}
		}
		ctx.inNetwork[u.UserDID] = uris
	}

	if missing > 0 {
		log.Warn().Int("users", missing).Msg("study users missing from social graph")
	}

	return ctx
}

// InNetworkURIs returns the user's in-network URI set. Unknown users get an
// empty set.
func (c *PersonalizationContext) InNetworkURIs(userDID string) map[string]struct{} {
	if s, ok := c.inNetwork[userDID]; ok {
		return s
	}
	return map[string]struct{}{}
}
