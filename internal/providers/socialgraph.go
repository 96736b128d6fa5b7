// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
)

// SocialGraphProvider reads the user-DID to followed-DID map from Redis.
// The graph scraper maintains one set per user under the configured key
// prefix.
type SocialGraphProvider struct {
	client    *redis.Client
	keyPrefix string
	logger    zerolog.Logger
}

// NewSocialGraphProvider connects to the configured Redis instance.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSocialGraphProvider(cfg *config.Config, logger zerolog.Logger) *SocialGraphProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.SocialGraph.Addr,
		Password: cfg.SocialGraph.Password,
		DB:       cfg.SocialGraph.DB,
	})

	return &SocialGraphProvider{
		client:    client,
		keyPrefix: cfg.SocialGraph.KeyPrefix,
		logger:    logger.With().Str("component", "socialgraph_provider").Logger(),
	}
}

// Load returns the full graph: every per-user followed set under the key
// prefix.
func (p *SocialGraphProvider) Load(ctx context.Context) (map[string][]string, error) {
	graph := make(map[string][]string)

	iter := p.client.Scan(ctx, 0, p.keyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userDID := strings.TrimPrefix(key, p.keyPrefix)

		followed, err := p.client.SMembers(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("read followed set for %s: %w", userDID, err)
		}
		graph[userDID] = followed
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan social graph keys: %w", err)
	}

	p.logger.Debug().Int("users", len(graph)).Msg("loaded social graph")
	return graph, nil
}

// Ping verifies the Redis connection.
func (p *SocialGraphProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (p *SocialGraphProvider) Close() error {
	return p.client.Close()
}
