// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/models"
	"github.com/bskylab/feedgen/internal/storage"
)

// StudyUsersProvider reads the participant registry from the warehouse. The
// study_users table is owned by the participant onboarding service.
type StudyUsersProvider struct {
	warehouse *storage.Warehouse
	logger    zerolog.Logger
}

// NewStudyUsersProvider creates a study user provider.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStudyUsersProvider(warehouse *storage.Warehouse, logger zerolog.Logger) *StudyUsersProvider {
	return &StudyUsersProvider{
		warehouse: warehouse,
		logger:    logger.With().Str("component", "studyusers_provider").Logger(),
	}
}

// GetAll returns the participant list. With testMode set only test
// participants are returned. Rows with an unknown condition are skipped with
// a warning rather than failing the session.
func (p *StudyUsersProvider) GetAll(ctx context.Context, testMode bool) ([]models.StudyUser, error) {
	query := `
		SELECT user_did, bluesky_handle, condition, is_study_user
		FROM study_users
		WHERE is_study_user = true`
	if testMode {
		query += ` AND is_test_user = true`
	}

	rows, err := p.warehouse.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query study users: %w", err)
	}
	defer rows.Close()

	var out []models.StudyUser
	skipped := 0
	for rows.Next() {
		var u models.StudyUser
		if err := rows.Scan(&u.UserDID, &u.Handle, &u.Condition, &u.IsStudyUser); err != nil {
			return nil, fmt.Errorf("scan study user: %w", err)
		}
		if !u.Condition.Valid() {
			skipped++
			p.logger.Warn().
				Str("user_did", u.UserDID).
				Str("condition", string(u.Condition)).
				Msg("skipping user with unknown condition")
			continue
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study users: %w", err)
	}

	p.logger.Debug().Int("users", len(out)).Int("skipped", skipped).Bool("test_mode", testMode).Msg("loaded study users")
	return out, nil
}
