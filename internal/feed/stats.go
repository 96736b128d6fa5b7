// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"github.com/bskylab/feedgen/internal/models"
)

// FeedStatistics is the per-feed statistics payload, stored JSON-encoded on
// each feed record.
type FeedStatistics struct {
	FeedLength     int     `json:"feed_length"`
	TotalInNetwork int     `json:"total_in_network"`
	PropInNetwork  float64 `json:"prop_in_network"`
}

// ComputeFeedStatistics returns the JSON-encoded statistics for one feed.
func ComputeFeedStatistics(f *models.Feed) (string, error) {
	stats := FeedStatistics{
		FeedLength:     len(f.Items),
		TotalInNetwork: f.InNetworkCount(),
	}
	if stats.FeedLength > 0 {
		stats.PropInNetwork = round(float64(stats.TotalInNetwork)/float64(stats.FeedLength), 3)
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("marshal feed statistics: %w", err)
	}
	return string(raw), nil
}

// ComputeSessionAnalytics aggregates the session's successful feeds. The
// default feed counts toward the reverse-chronological condition.
func ComputeSessionAnalytics(feeds []*models.Feed, sessionTimestamp string) models.SessionAnalytics {
	a := models.SessionAnalytics{
		SessionTimestamp:       sessionTimestamp,
		TotalFeeds:             len(feeds),
		TotalFeedsPerCondition: make(map[models.Condition]int, len(models.Conditions)),
	}
	for _, cond := range models.Conditions {
		a.TotalFeedsPerCondition[cond] = 0
	}

	engagementURIs := make(map[string]struct{})
	treatmentURIs := make(map[string]struct{})

	for _, f := range feeds {
		a.TotalPosts += len(f.Items)
		a.TotalInNetworkPosts += f.InNetworkCount()
		a.TotalFeedsPerCondition[f.Condition]++

		switch f.Condition {
		case models.ConditionEngagement:
			for _, it := range f.Items {
				engagementURIs[it.URI] = struct{}{}
			}
		case models.ConditionRepresentativeDiversification:
			for _, it := range f.Items {
				treatmentURIs[it.URI] = struct{}{}
			}
		}
	}

	if a.TotalPosts > 0 {
		a.TotalInNetworkPostsProp = round(float64(a.TotalInNetworkPosts)/float64(a.TotalPosts), 2)
	}

	a.TotalUniqueEngagementURIs = len(engagementURIs)
	a.TotalUniqueTreatmentURIs = len(treatmentURIs)

	intersection := 0
	for uri := range treatmentURIs {
		if _, ok := engagementURIs[uri]; ok {
			intersection++
		}
	}
	if len(treatmentURIs) > 0 {
		a.PropOverlapTreatmentInEngagement = round(float64(intersection)/float64(len(treatmentURIs)), 3)
	}
	if len(engagementURIs) > 0 {
		a.PropOverlapEngagementInTreatment = round(float64(intersection)/float64(len(engagementURIs)), 3)
	}

	return a
}

// round rounds v to the given number of decimal places, half away from zero.
func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
