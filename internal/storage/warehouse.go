// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package storage holds the concrete persistence adapters behind the feed
// pipeline's repository interfaces: the DuckDB warehouse (enriched posts,
// study users, cached scores, session metadata) and the Badger feed artifact
// store (per-session feeds, analytics, TTL tiers).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/metrics"
)

// Warehouse is the shared DuckDB handle. All warehouse reads and writes go
// through it so the rate limiter and circuit breaker see every query.
type Warehouse struct {
	db      *sql.DB
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// OpenWarehouse opens the DuckDB database and prepares the pipeline's own
// tables. Tables owned by upstream services (enriched posts, study users,
// superposters) are never created here.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenWarehouse(cfg *config.Config, logger zerolog.Logger) (*Warehouse, error) {
	db, err := sql.Open("duckdb", cfg.Warehouse.Path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	w := &Warehouse{
		db:     db,
		logger: logger.With().Str("component", "warehouse").Logger(),
	}

	if qps := cfg.Warehouse.QueriesPerSecond; qps > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(qps), int(qps))
	}
	if cfg.Warehouse.BreakerEnabled {
		w.breaker = newWarehouseBreaker(w.logger)
	}

	if err := w.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// newWarehouseBreaker opens after a 60% failure rate over at least 10
// requests and probes again after one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newWarehouseBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "warehouse",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("warehouse breaker state change")
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (w *Warehouse) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS post_scores (
			uri VARCHAR NOT NULL,
			engagement_score DOUBLE,
			treatment_score DOUBLE,
			scored_timestamp TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_metadata (
			session_timestamp VARCHAR NOT NULL,
			total_feeds INTEGER NOT NULL,
			total_posts INTEGER NOT NULL,
			total_in_network_posts INTEGER NOT NULL,
			total_in_network_posts_prop DOUBLE NOT NULL,
			total_unique_engagement_uris INTEGER NOT NULL,
			total_unique_treatment_uris INTEGER NOT NULL,
			prop_overlap_treatment_uris_in_engagement_uris DOUBLE NOT NULL,
			prop_overlap_engagement_uris_in_treatment_uris DOUBLE NOT NULL,
			inserted_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init warehouse schema: %w", err)
		}
	}
	return nil
}

// guard applies the rate limit and runs fn under the breaker.
func (w *Warehouse) guard(ctx context.Context, fn func() (any, error)) (any, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if w.breaker == nil {
		return fn()
	}
	return w.breaker.Execute(fn)
}

// Query runs a read query under the limiter and breaker. The caller owns the
// returned rows.
func (w *Warehouse) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	res, err := w.guard(ctx, func() (any, error) {
		return w.db.QueryContext(ctx, query, args...) //nolint:sqlclosecheck // rows are closed by the caller
	})
	if err != nil {
		return nil, err
	}
	return res.(*sql.Rows), nil
}

// Exec runs a write statement under the limiter and breaker.
func (w *Warehouse) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.guard(ctx, func() (any, error) {
		return w.db.ExecContext(ctx, query, args...)
	})
	return err
}

// Tx runs fn inside a transaction under the limiter and breaker.
func (w *Warehouse) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	_, err := w.guard(ctx, func() (any, error) {
		tx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				w.logger.Warn().Err(rbErr).Msg("transaction rollback failed")
			}
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// Ping verifies the connection, bypassing the breaker so health checks keep
// working while the breaker is open.
func (w *Warehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	return w.db.Close()
}
