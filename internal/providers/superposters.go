// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/storage"
)

// superposterPrefix mirrors the key layout the detection batch job writes
// into the shared Badger store: one JSON-encoded DID list per batch, keyed
// by batch timestamp.
const superposterPrefix = "superposters/"

// LocalSuperposterProvider reads the most recent superposter batch artifact
// from the Badger store.
type LocalSuperposterProvider struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewLocalSuperposterProvider creates a provider over the feed store's
// Badger handle.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLocalSuperposterProvider(db *badger.DB, logger zerolog.Logger) *LocalSuperposterProvider {
	return &LocalSuperposterProvider{
		db:     db,
		logger: logger.With().Str("component", "superposter_provider").Str("source", "local").Logger(),
	}
}

// LoadLatest returns the DID set of the newest batch. A missing artifact
// yields an empty set with a warning; superposter penalties simply do not
// apply that session.
func (p *LocalSuperposterProvider) LoadLatest(_ context.Context) (map[string]struct{}, error) {
	var raw []byte
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration from just past the prefix lands on the newest
		// batch key first.
		seek := append([]byte(superposterPrefix), 0xff)
		it.Seek(seek)
		if !it.ValidForPrefix([]byte(superposterPrefix)) {
			return badger.ErrKeyNotFound
		}
		var err error
		raw, err = it.Item().ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		p.logger.Warn().Msg("no superposter batch artifact found, penalties disabled this session")
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read superposter artifact: %w", err)
	}

	var dids []string
	if err := json.Unmarshal(raw, &dids); err != nil {
		return nil, fmt.Errorf("decode superposter artifact: %w", err)
	}

	out := make(map[string]struct{}, len(dids))
	for _, did := range dids {
		out[did] = struct{}{}
	}
	p.logger.Debug().Int("superposters", len(out)).Msg("loaded superposter set")
	return out, nil
}

// RemoteSuperposterProvider reads the newest superposter batch from the
// warehouse table maintained by the detection job.
type RemoteSuperposterProvider struct {
	warehouse *storage.Warehouse
	logger    zerolog.Logger
}

// NewRemoteSuperposterProvider creates a warehouse-backed provider.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRemoteSuperposterProvider(warehouse *storage.Warehouse, logger zerolog.Logger) *RemoteSuperposterProvider {
	return &RemoteSuperposterProvider{
		warehouse: warehouse,
		logger:    logger.With().Str("component", "superposter_provider").Str("source", "remote").Logger(),
	}
}

// LoadLatest returns the DID set of the newest detection batch.
func (p *RemoteSuperposterProvider) LoadLatest(ctx context.Context) (map[string]struct{}, error) {
	const query = `
		SELECT DISTINCT author_did
		FROM superposters
		WHERE batch_timestamp = (SELECT max(batch_timestamp) FROM superposters)`

	rows, err := p.warehouse.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query superposters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, fmt.Errorf("scan superposter: %w", err)
		}
		out[did] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate superposters: %w", err)
	}

	p.logger.Debug().Int("superposters", len(out)).Msg("loaded superposter set")
	return out, nil
}
