// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

// SessionAnalytics aggregates one feed generation session.
type SessionAnalytics struct {
	SessionTimestamp string `json:"session_timestamp"`

	TotalFeeds int `json:"total_feeds"`
	TotalPosts int `json:"total_posts"`

	TotalInNetworkPosts     int     `json:"total_in_network_posts"`
	TotalInNetworkPostsProp float64 `json:"total_in_network_posts_prop"`

	TotalUniqueEngagementURIs int `json:"total_unique_engagement_uris"`
	TotalUniqueTreatmentURIs  int `json:"total_unique_treatment_uris"`

	// PropOverlapTreatmentInEngagement is |E ∩ T| / |T| rounded to 3 places;
	// the symmetric metric divides by |E| instead.
	PropOverlapTreatmentInEngagement float64 `json:"prop_overlap_treatment_uris_in_engagement_uris"`
	PropOverlapEngagementInTreatment float64 `json:"prop_overlap_engagement_uris_in_treatment_uris"`

	TotalFeedsPerCondition map[Condition]int `json:"total_feeds_per_condition"`
}
