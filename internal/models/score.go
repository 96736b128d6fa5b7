// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

import "time"

// PostScore is one cached per-post score row. Rows are append-only; readers
// take the latest ScoredAt per URI.
type PostScore struct {
	URI             string
	EngagementScore float64
	TreatmentScore  float64
	ScoredAt        time.Time
}

// ScorePair is the cached pair of per-algorithm scores for a URI.
type ScorePair struct {
	Engagement float64
	Treatment  float64
}
