// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/models"
)

// Key layout. Session timestamps use a lexicographically sortable format, so
// key order is chronological within a prefix.
const (
	feedActivePrefix      = "feeds/active/"
	feedCachePrefix       = "feeds/cache/"
	analyticsActivePrefix = "analytics/active/"
	analyticsCachePrefix  = "analytics/cache/"
)

// FeedStore persists per-session feed artifacts in Badger: the active tier
// holds the sessions feed consumers read; the TTL step retires older
// sessions to the cache tier.
type FeedStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenFeedStore opens the Badger database at the configured path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenFeedStore(cfg *config.Config, logger zerolog.Logger) (*FeedStore, error) {
	opts := badger.DefaultOptions(cfg.FeedStore.Path).WithLogger(nil)
	if cfg.FeedStore.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feed store: %w", err)
	}

	return &FeedStore{
		db:     db,
		logger: logger.With().Str("component", "feedstore").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *FeedStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for co-located artifact readers.
func (s *FeedStore) DB() *badger.DB {
	return s.db
}

func feedKey(sessionTS, userDID string) []byte {
	return []byte(feedActivePrefix + sessionTS + "/" + userDID)
}

// WriteFeeds stores every feed of one session under the active tier.
func (s *FeedStore) WriteFeeds(_ context.Context, feeds []models.StoredFeed, sessionTimestamp string) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range feeds {
		data, err := json.Marshal(&feeds[i])
		if err != nil {
			return NewStorageError("write_feeds", fmt.Errorf("marshal feed %s: %w", feeds[i].FeedID, err))
		}
		if err := wb.Set(feedKey(sessionTimestamp, feeds[i].UserDID), data); err != nil {
			return NewStorageError("write_feeds", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return NewStorageError("write_feeds", err)
	}

	s.logger.Info().Int("feeds", len(feeds)).Str("session_timestamp", sessionTimestamp).Msg("wrote session feeds")
	return nil
}

// WriteSessionAnalytics stores the session analytics record.
func (s *FeedStore) WriteSessionAnalytics(_ context.Context, analytics models.SessionAnalytics, sessionTimestamp string) error {
	data, err := json.Marshal(analytics)
	if err != nil {
		return NewStorageError("write_session_analytics", fmt.Errorf("marshal analytics: %w", err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(analyticsActivePrefix+sessionTimestamp), data)
	})
	if err != nil {
		return NewStorageError("write_session_analytics", err)
	}
	return nil
}

// LoadPreviousFeedURIs returns the URI sets of the most recent active
// session keyed by user DID. An empty map means no prior session exists.
func (s *FeedStore) LoadPreviousFeedURIs(_ context.Context) (map[string]map[string]struct{}, error) {
	latest, err := s.latestActiveSession()
	if err != nil {
		return nil, NewStorageError("load_previous_feeds", err)
	}
	if latest == "" {
		return map[string]map[string]struct{}{}, nil
	}

	out := make(map[string]map[string]struct{})
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(feedActivePrefix + latest + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var feed models.StoredFeed
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &feed)
			})
			if err != nil {
				return fmt.Errorf("decode feed %s: %w", it.Item().Key(), err)
			}

			uris := make(map[string]struct{}, len(feed.Feed))
			for _, item := range feed.Feed {
				uris[item.URI] = struct{}{}
			}
			out[feed.UserDID] = uris
		}
		return nil
	})
	if err != nil {
		return nil, NewStorageError("load_previous_feeds", err)
	}
	return out, nil
}

// latestActiveSession returns the newest session timestamp under the active
// feed prefix, or empty if none exist.
func (s *FeedStore) latestActiveSession() (string, error) {
	var latest string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedActivePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ts := sessionFromKey(it.Item().Key(), feedActivePrefix)
			if ts > latest {
				latest = ts
			}
		}
		return nil
	})
	return latest, err
}

// sessionFromKey extracts the session timestamp segment from a key under the
// given prefix.
func sessionFromKey(key []byte, prefix string) string {
	rest := strings.TrimPrefix(string(key), prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// MoveToCache retains the newest keepCount sessions under the active tier
// and moves everything older, feeds and analytics alike, to the cache tier.
func (s *FeedStore) MoveToCache(_ context.Context, keepCount int) error {
	sessions, err := s.activeSessions()
	if err != nil {
		return NewStorageError("ttl", err)
	}
	if len(sessions) <= keepCount {
		return nil
	}

	// Newest first; everything past keepCount is retired.
	sort.Sort(sort.Reverse(sort.StringSlice(sessions)))
	for _, ts := range sessions[keepCount:] {
		if err := s.retireSession(ts); err != nil {
			return NewStorageError("ttl", err)
		}
		s.logger.Info().Str("session_timestamp", ts).Msg("moved session to cache tier")
	}
	return nil
}

// activeSessions lists distinct session timestamps under the active tier.
func (s *FeedStore) activeSessions() ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range []string{feedActivePrefix, analyticsActivePrefix} {
			p := []byte(prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				seen[sessionFromKey(it.Item().Key(), prefix)] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]string, 0, len(seen))
	for ts := range seen {
		sessions = append(sessions, ts)
	}
	return sessions, nil
}

// retireSession moves one session's keys from the active tier to the cache
// tier.
func (s *FeedStore) retireSession(sessionTS string) error {
	type move struct {
		from, to []byte
		value    []byte
	}

	var moves []move
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		rewrites := [][2]string{
			{feedActivePrefix + sessionTS, feedCachePrefix + sessionTS},
			{analyticsActivePrefix + sessionTS, analyticsCachePrefix + sessionTS},
		}
		for _, rw := range rewrites {
			prefix := []byte(rw[0])
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				from := item.KeyCopy(nil)
				to := append([]byte(rw[1]), bytes.TrimPrefix(from, prefix)...)
				moves = append(moves, move{from: from, to: to, value: val})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range moves {
			if err := txn.Set(m.to, m.value); err != nil {
				return err
			}
			if err := txn.Delete(m.from); err != nil {
				return err
			}
		}
		return nil
	})
}
