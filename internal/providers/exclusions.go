// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package providers

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
)

// ExclusionProvider reads the author exclusion lists from a YAML artifact
// maintained by the moderation team. The file is re-read every session so
// list updates apply without a restart.
type ExclusionProvider struct {
	path   string
	logger zerolog.Logger
}

// NewExclusionProvider creates an exclusion provider. An empty path disables
// exclusion filtering.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewExclusionProvider(path string, logger zerolog.Logger) *ExclusionProvider {
	return &ExclusionProvider{
		path:   path,
		logger: logger.With().Str("component", "exclusion_provider").Logger(),
	}
}

// Load parses the exclusion artifact.
func (p *ExclusionProvider) Load(_ context.Context) (models.Exclusions, error) {
	excl := models.Exclusions{
		HandlesExcluded: map[string]struct{}{},
		DIDsExcluded:    map[string]struct{}{},
	}
	if p.path == "" {
		return excl, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(p.path), yaml.Parser()); err != nil {
		return models.Exclusions{}, fmt.Errorf("load exclusion list %s: %w", p.path, err)
	}

	for _, h := range k.Strings("handles_excluded") {
		excl.HandlesExcluded[h] = struct{}{}
	}
	for _, did := range k.Strings("dids_excluded") {
		excl.DIDsExcluded[did] = struct{}{}
	}

	p.logger.Debug().
		Int("handles", len(excl.HandlesExcluded)).
		Int("dids", len(excl.DIDsExcluded)).
		Msg("loaded exclusion lists")
	return excl, nil
}
