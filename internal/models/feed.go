// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

import "fmt"

// SessionTimestampFormat is the layout used for session timestamps in feed
// IDs, storage keys, and analytics records.
const SessionTimestampFormat = "2006-01-02-15:04:05"

// FeedItem is one entry of a generated feed. IsInNetwork is true iff the post
// came from the user's in-network firehose subset.
type FeedItem struct {
	URI         string `json:"item"`
	IsInNetwork bool   `json:"is_in_network"`
}

// Feed is the ordered, length-bounded feed generated for one user in one
// session.
type Feed struct {
	UserDID          string
	Handle           string
	Condition        Condition
	SessionTimestamp string
	Items            []FeedItem

	// Statistics is the JSON-encoded per-feed statistics string attached at
	// generation time.
	Statistics string
}

// InNetworkCount returns how many items are tagged in-network.
func (f *Feed) InNetworkCount() int {
	n := 0
	for _, it := range f.Items {
		if it.IsInNetwork {
			n++
		}
	}
	return n
}

// StoredFeed is the persisted per-user, per-session feed record. This is the
// only bit-level contract external consumers depend on.
type StoredFeed struct {
	FeedID                  string     `json:"feed_id"`
	UserDID                 string     `json:"user_did"`
	BlueskyHandle           string     `json:"bluesky_handle"`
	Condition               string     `json:"condition"`
	FeedGenerationTimestamp string     `json:"feed_generation_timestamp"`
	FeedStatistics          string     `json:"feed_statistics"`
	Feed                    []FeedItem `json:"feed"`
}

// ToStored converts a generated feed into its persisted representation.
// Feed IDs are "<user_did>::<session_timestamp>".
func (f *Feed) ToStored() StoredFeed {
	return StoredFeed{
		FeedID:                  fmt.Sprintf("%s::%s", f.UserDID, f.SessionTimestamp),
		UserDID:                 f.UserDID,
		BlueskyHandle:           f.Handle,
		Condition:               string(f.Condition),
		FeedGenerationTimestamp: f.SessionTimestamp,
		FeedStatistics:          f.Statistics,
		Feed:                    f.Items,
	}
}
