// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/events"
	"github.com/bskylab/feedgen/internal/feed"
	"github.com/bskylab/feedgen/internal/providers"
	"github.com/bskylab/feedgen/internal/storage"
)

// wiring is the composition root: every concrete adapter behind the
// pipeline's interfaces, plus the handles the ops server health-checks.
type wiring struct {
	deps      feed.Deps
	warehouse *storage.Warehouse
	feedStore *storage.FeedStore
	graph     *providers.SocialGraphProvider
	publisher *events.SessionPublisher
}

// buildWiring opens every backend and assembles the orchestrator
// dependencies.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func buildWiring(cfg *config.Config, logger zerolog.Logger) (*wiring, error) {
	warehouse, err := storage.OpenWarehouse(cfg, logger)
	if err != nil {
		return nil, err
	}

	feedStore, err := storage.OpenFeedStore(cfg, logger)
	if err != nil {
		warehouse.Close()
		return nil, err
	}

	graph := providers.NewSocialGraphProvider(cfg, logger)

	w := &wiring{
		warehouse: warehouse,
		feedStore: feedStore,
		graph:     graph,
	}

	var superposters feed.SuperposterProvider
	switch cfg.Pipeline.SuperposterSource {
	case config.SuperposterSourceRemote:
		superposters = providers.NewRemoteSuperposterProvider(warehouse, logger)
	default:
		superposters = providers.NewLocalSuperposterProvider(feedStore.DB(), logger)
	}

	w.deps = feed.Deps{
		Users:        providers.NewStudyUsersProvider(warehouse, logger),
		Graph:        graph,
		Superposters: superposters,
		Posts:        providers.NewPostsProvider(warehouse, logger),
		Exclusions:   providers.NewExclusionProvider(cfg.Pipeline.ExclusionListPath, logger),
		Scores:       storage.NewScoresRepo(warehouse, logger),
		Feeds:        feedStore,
		TTL:          feedStore,
		Metadata:     storage.NewSessionMetadataRepo(warehouse, logger),
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewNATSPublisher(cfg, logger)
		if err != nil {
			w.close(logger)
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		w.publisher = publisher
		w.deps.Events = publisher
	}

	return w, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (w *wiring) close(logger zerolog.Logger) {
	if w.publisher != nil {
		if err := w.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("event publisher close failed")
		}
	}
	if err := w.graph.Close(); err != nil {
		logger.Warn().Err(err).Msg("social graph close failed")
	}
	if err := w.feedStore.Close(); err != nil {
		logger.Warn().Err(err).Msg("feed store close failed")
	}
	if err := w.warehouse.Close(); err != nil {
		logger.Warn().Err(err).Msg("warehouse close failed")
	}
}
