// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package scheduler runs feed generation sessions on the configured cadence
// in daemon mode. It is a suture service: a panic inside a session restarts
// the scheduler without touching the ops HTTP surface.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/feed"
)

// Status captures the most recent session for the ops /status endpoint.
type Status struct {
	RunID            string    `json:"run_id"`
	SessionTimestamp string    `json:"session_timestamp"`
	Outcome          string    `json:"outcome"`
	Error            string    `json:"error,omitempty"`
	FeedsWritten     int       `json:"feeds_written"`
	FailedUsers      int       `json:"failed_users"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Scheduler triggers one session immediately on start, then one per
// configured interval.
type Scheduler struct {
	cfg    *config.Config
	orch   *feed.Orchestrator
	opts   feed.RunOptions
	logger zerolog.Logger

	mu   sync.RWMutex
	last *Status
}

// New creates a scheduler over the orchestrator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *config.Config, orch *feed.Orchestrator, opts feed.RunOptions, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		orch:   orch,
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.runSession(ctx)

	ticker := time.NewTicker(s.cfg.Pipeline.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSession(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) runSession(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := s.orch.Run(ctx, s.opts)

	status := &Status{CompletedAt: time.Now().UTC()}
	switch {
	case result != nil:
		status.RunID = result.RunID
		status.SessionTimestamp = result.SessionTimestamp
		status.FeedsWritten = result.FeedsWritten
		status.FailedUsers = result.FailedUsers
		status.Outcome = "success"
		if err != nil {
			// Post-export failure; the session exports are intact.
			status.Outcome = "success_with_errors"
			status.Error = err.Error()
		}
	default:
		status.Outcome = "failure"
		if err != nil {
			status.Error = err.Error()
		}
		s.logger.Error().Err(err).Msg("scheduled session failed")
	}

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
}

// Status returns the most recent session status, or nil before the first
// session completes.
func (s *Scheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	copied := *s.last
	return &copied
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "session-scheduler"
}
