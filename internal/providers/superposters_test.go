// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package providers

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func newTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeBatch(t *testing.T, db *badger.DB, batchTS string, dids []string) {
	t.Helper()
	data, err := json.Marshal(dids)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(superposterPrefix+batchTS), data)
	})
	if err != nil {
		t.Fatalf("write batch: %v", err)
	}
}

func TestLocalSuperposterProviderLoadsNewestBatch(t *testing.T) {
	db := newTestBadger(t)
	writeBatch(t, db, "2024-06-01-10:00:00", []string{"did:old"})
	writeBatch(t, db, "2024-06-01-11:00:00", []string{"did:a", "did:b"})

	got, err := NewLocalSuperposterProvider(db, zerolog.Nop()).LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d superposters, want 2 from the newest batch", len(got))
	}
	if _, ok := got["did:a"]; !ok {
		t.Errorf("missing did:a")
	}
	if _, ok := got["did:old"]; ok {
		t.Errorf("older batch leaked into the set")
	}
}

func TestLocalSuperposterProviderMissingArtifact(t *testing.T) {
	db := newTestBadger(t)

	got, err := NewLocalSuperposterProvider(db, zerolog.Nop()).LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("missing artifact must yield an empty set, got %v", got)
	}
}
