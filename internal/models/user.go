// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

// Condition is the experimental arm assigned to a study participant.
// It is the sole driver of algorithm selection.
type Condition string

const (
	ConditionReverseChronological          Condition = "reverse_chronological"
	ConditionEngagement                    Condition = "engagement"
	ConditionRepresentativeDiversification Condition = "representative_diversification"
)

// Conditions lists every experimental arm. Session analytics report a feed
// count for each, zeros allowed.
var Conditions = []Condition{
	ConditionReverseChronological,
	ConditionEngagement,
	ConditionRepresentativeDiversification,
}

// Valid reports whether c is one of the three recognized conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionReverseChronological, ConditionEngagement, ConditionRepresentativeDiversification:
		return true
	}
	return false
}

// StudyUser is one participant record from the study-user registry.
type StudyUser struct {
	UserDID     string
	Handle      string
	Condition   Condition
	IsStudyUser bool
}

// DefaultFeedUserDID designates the shared default feed written alongside the
// per-participant feeds each session.
const DefaultFeedUserDID = "default"
