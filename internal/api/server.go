// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Package api serves the daemon-mode ops surface: liveness, Prometheus
// metrics, and the last-session status. There is no feed-serving endpoint;
// consumers read feeds from the artifact store.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/scheduler"
)

// HealthCheck probes one dependency. Checks run per request with a short
// timeout each.
type HealthCheck func(ctx context.Context) error

// Server is the ops HTTP server, run as a suture service.
type Server struct {
	cfg    *config.Config
	sched  *scheduler.Scheduler
	checks map[string]HealthCheck
	logger zerolog.Logger
}

// NewServer creates the ops server. sched may be nil when running one-shot.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(cfg *config.Config, sched *scheduler.Scheduler, checks map[string]HealthCheck, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		sched:  sched,
		checks: checks,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.Timeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", s.handleStatus)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type checkResult struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	results := make(map[string]checkResult, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err := check(ctx)
		cancel()

		if err != nil {
			healthy = false
			results[name] = checkResult{Status: "unhealthy", Error: err.Error()}
			continue
		}
		results[name] = checkResult{Status: "healthy"}
	}

	code := http.StatusOK
	status := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "unhealthy"
	}
	s.writeJSON(w, code, map[string]any{
		"status": status,
		"checks": results,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.sched == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"mode": "oneshot"})
		return
	}

	status := s.sched.Status()
	if status == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"mode": "daemon", "last_session": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"mode": "daemon", "last_session": status})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn().Err(err).Msg("response encode failed")
	}
}

// Serve implements suture.Service: it runs the HTTP server until the context
// is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router(),
		ReadTimeout:  s.cfg.Server.Timeout,
		WriteTimeout: s.cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("ops server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "ops-server"
}
