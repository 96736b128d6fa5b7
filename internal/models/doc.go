// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package models defines the data types shared across the feed generation
// pipeline: enriched posts, study participants, candidate pools, generated
// feeds, cached scores, and per-session analytics.
//
// Posts carry optional ML labels. Optionality is modeled explicitly with the
// Opt type rather than pointers or sentinel values, so every consumer has to
// decide what a missing label means.
package models
