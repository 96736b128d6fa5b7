// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bskylab/feedgen/internal/config"
	"github.com/bskylab/feedgen/internal/metrics"
	"github.com/bskylab/feedgen/internal/models"
	"github.com/bskylab/feedgen/internal/storage"
)

// Deps bundles everything the orchestrator is wired with at the composition
// root.
type Deps struct {
	Users        StudyUserProvider
	Graph        SocialGraphProvider
	Superposters SuperposterProvider
	Posts        PostProvider
	Exclusions   ExclusionProvider
	Scores       ScoresRepository
	Feeds        FeedStorage
	TTL          FeedTTL
	Metadata     SessionMetadataStore

	// Events is optional; nil disables publication.
	Events EventPublisher
}

// RunOptions controls one session.
type RunOptions struct {
	// UsersFilter restricts the session to the listed user DIDs. Empty means
	// all study users.
	UsersFilter []string

	// ExportNewScores persists freshly computed scores back to the cache.
	ExportNewScores bool

	// TestMode restricts to test participants and skips TTL and session
	// metadata.
	TestMode bool
}

// SessionResult summarizes one completed session.
type SessionResult struct {
	RunID            string
	SessionTimestamp string
	Analytics        models.SessionAnalytics
	FeedsWritten     int
	FailedUsers      int
}

// Orchestrator runs feed generation sessions end to end: load, score, build
// pools, fan out per-user generation, export, TTL, session metadata.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger

	loader   *DataLoader
	scorer   *Scorer
	pools    *PoolBuilder
	ranker   *Ranker
	reranker *Reranker

	// now is injectable for tests.
	now func() time.Time
}

// NewOrchestrator wires the pipeline components over the given dependencies.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(cfg *config.Config, deps Deps, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		loader:   NewDataLoader(deps.Posts, deps.Exclusions, cfg, logger),
		scorer:   NewScorer(cfg, deps.Scores, logger),
		pools:    NewPoolBuilder(cfg, logger),
		ranker:   NewRanker(cfg),
		reranker: NewReranker(cfg),
		now:      time.Now,
	}
}

// Run executes one session. A fatal failure before export returns a nil
// result and leaves prior feeds in place. Post-export TTL or metadata
// failures return the successful result together with a StorageError.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*SessionResult, error) {
	started := o.now()
	runID := uuid.NewString()
	sessionTS := started.UTC().Format(models.SessionTimestampFormat)

	log := o.logger.With().Str("run_id", runID).Str("session_timestamp", sessionTS).Logger()
	log.Info().
		Bool("test_mode", opts.TestMode).
		Bool("export_new_scores", opts.ExportNewScores).
		Int("users_filter", len(opts.UsersFilter)).
		Msg("session started")

	result, err := o.run(ctx, opts, runID, sessionTS, log)

	metrics.SessionDuration.Observe(o.now().Sub(started).Seconds())
	switch {
	case result != nil:
		// Post-export failures still count as a successful session.
		metrics.SessionsTotal.WithLabelValues("success").Inc()
	case ctx.Err() != nil:
		metrics.SessionsTotal.WithLabelValues("cancelled").Inc()
	default:
		metrics.SessionsTotal.WithLabelValues("failure").Inc()
	}

	return result, err
}

//nolint:gocyclo // the session sequence is long but strictly linear
func (o *Orchestrator) run(ctx context.Context, opts RunOptions, runID, sessionTS string, log zerolog.Logger) (*SessionResult, error) {
	var users []models.StudyUser
	err := o.step(ctx, "users", func(ctx context.Context) error {
		var err error
		users, err = o.deps.Users.GetAll(ctx, opts.TestMode)
		return err
	})
	if err != nil {
		return nil, err
	}
	users = filterUsers(users, opts.UsersFilter)

	var graph map[string][]string
	var superposters map[string]struct{}
	var posts []models.Post
	err = o.step(ctx, "load", func(ctx context.Context) error {
		var err error
		if graph, err = o.deps.Graph.Load(ctx); err != nil {
			return fmt.Errorf("load social graph: %w", err)
		}
		if superposters, err = o.deps.Superposters.LoadLatest(ctx); err != nil {
			return fmt.Errorf("load superposters: %w", err)
		}
		posts, err = o.loader.Load(ctx, o.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.PostsRanked.Set(float64(len(posts)))

	var scored []models.ScoredPost
	err = o.step(ctx, "score", func(ctx context.Context) error {
		var err error
		scored, _, err = o.scorer.Score(ctx, posts, superposters, opts.ExportNewScores)
		return err
	})
	if err != nil {
		return nil, err
	}

	var pools models.CandidatePools
	var pctx *PersonalizationContext
	var previous map[string]map[string]struct{}
	err = o.step(ctx, "pools", func(ctx context.Context) error {
		pools = o.pools.Build(scored)
		pctx = BuildPersonalizationContext(scored, graph, users, log)
		var err error
		previous, err = o.deps.Feeds.LoadPreviousFeedURIs(ctx)
		if err != nil {
			return fmt.Errorf("load previous feeds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var feeds []*models.Feed
	var failed int
	err = o.step(ctx, "rank", func(ctx context.Context) error {
		feeds, failed = o.generateFeeds(ctx, users, &pools, pctx, previous, sessionTS, log)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	analytics := ComputeSessionAnalytics(feeds, sessionTS)

	err = o.step(ctx, "export", func(ctx context.Context) error {
		stored := make([]models.StoredFeed, len(feeds))
		for i, f := range feeds {
			stored[i] = f.ToStored()
		}
		if err := o.deps.Feeds.WriteFeeds(ctx, stored, sessionTS); err != nil {
			return fmt.Errorf("write feeds: %w", err)
		}
		if err := o.deps.Feeds.WriteSessionAnalytics(ctx, analytics, sessionTS); err != nil {
			return fmt.Errorf("write session analytics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SessionResult{
		RunID:            runID,
		SessionTimestamp: sessionTS,
		Analytics:        analytics,
		FeedsWritten:     len(feeds),
		FailedUsers:      failed,
	}

	var postExportErr error
	if !opts.TestMode {
		postExportErr = o.step(ctx, "ttl", func(ctx context.Context) error {
			if err := o.deps.TTL.MoveToCache(ctx, o.cfg.Pipeline.KeepCount); err != nil {
				return storage.NewStorageError("ttl", err)
			}
			if err := o.deps.Metadata.InsertSessionMetadata(ctx, analytics); err != nil {
				return storage.NewStorageError("session_metadata", err)
			}
			return nil
		})
		if postExportErr != nil {
			log.Error().Err(postExportErr).Msg("post-export step failed, session exports are intact")
		}
	}

	o.publish(ctx, runID, sessionTS, analytics, log)

	log.Info().
		Int("feeds", result.FeedsWritten).
		Int("failed_users", result.FailedUsers).
		Msg("session completed")

	return result, postExportErr
}

// generateFeeds fans the per-user work out to a bounded worker pool. Every
// input is read-only by this point. A failing user is logged and skipped;
// the default feed is generated alongside the study users.
func (o *Orchestrator) generateFeeds(ctx context.Context, users []models.StudyUser, pools *models.CandidatePools, pctx *PersonalizationContext, previous map[string]map[string]struct{}, sessionTS string, log zerolog.Logger) ([]*models.Feed, int) {
	jobs := make([]models.StudyUser, 0, len(users)+1)
	jobs = append(jobs, users...)
	jobs = append(jobs, models.StudyUser{
		UserDID:   models.DefaultFeedUserDID,
		Handle:    models.DefaultFeedUserDID,
		Condition: models.ConditionReverseChronological,
	})

	var (
		mu     sync.Mutex
		feeds  = make([]*models.Feed, 0, len(jobs))
		failed int
	)

	queue := make(chan models.StudyUser)
	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Pipeline.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				if ctx.Err() != nil {
					return
				}
				f, err := o.generateOne(&u, pools, pctx, previous, sessionTS)
				mu.Lock()
				if err != nil {
					failed++
					metrics.UserFailures.WithLabelValues(failureReason(err)).Inc()
					log.Error().Err(err).
						Str("user_did", u.UserDID).
						Str("condition", string(u.Condition)).
						Msg("per-user feed generation failed")
				} else {
					feeds = append(feeds, f)
					metrics.FeedsGenerated.WithLabelValues(string(u.Condition)).Inc()
				}
				mu.Unlock()
			}
		}()
	}

	for _, u := range jobs {
		select {
		case queue <- u:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(queue)
	wg.Wait()

	return feeds, failed
}

// generateOne runs Ranker, Reranker and statistics for a single user.
func (o *Orchestrator) generateOne(u *models.StudyUser, pools *models.CandidatePools, pctx *PersonalizationContext, previous map[string]map[string]struct{}, sessionTS string) (*models.Feed, error) {
	pool := pools.ForCondition(u.Condition)
	inNetwork := pctx.InNetworkURIs(u.UserDID)

	ranked, err := o.ranker.Rank(u.Condition, pool, inNetwork)
	if err != nil {
		return nil, err
	}

	items, err := o.reranker.Rerank(ranked, previous[u.UserDID], userRNG(o.cfg.Ranking.Seed, u.UserDID))
	if err != nil {
		return nil, err
	}

	f := &models.Feed{
		UserDID:          u.UserDID,
		Handle:           u.Handle,
		Condition:        u.Condition,
		SessionTimestamp: sessionTS,
		Items:            items,
	}
	if f.Statistics, err = ComputeFeedStatistics(f); err != nil {
		return nil, err
	}
	return f, nil
}

// publish announces the completed session. Failures are logged, never fatal.
func (o *Orchestrator) publish(ctx context.Context, runID, sessionTS string, analytics models.SessionAnalytics, log zerolog.Logger) {
	if o.deps.Events == nil {
		return
	}
	event := SessionCompletedEvent{
		RunID:            runID,
		SessionTimestamp: sessionTS,
		Analytics:        analytics,
	}
	if err := o.deps.Events.PublishSessionCompleted(ctx, event); err != nil {
		log.Warn().Err(err).Msg("session event publication failed")
	}
}

// step runs one pipeline step under the configured hard timeout and records
// its duration.
func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.StepTimeout)
	defer cancel()

	started := o.now()
	err := fn(stepCtx)
	metrics.StepDuration.WithLabelValues(name).Observe(o.now().Sub(started).Seconds())

	if err != nil {
		return fmt.Errorf("step %s: %w", name, err)
	}
	return nil
}

// filterUsers restricts users to the given DIDs. An empty filter keeps all.
func filterUsers(users []models.StudyUser, filter []string) []models.StudyUser {
	if len(filter) == 0 {
		return users
	}
	keep := make(map[string]struct{}, len(filter))
	for _, did := range filter {
		keep[did] = struct{}{}
	}
	out := make([]models.StudyUser, 0, len(users))
	for _, u := range users {
		if _, ok := keep[u.UserDID]; ok {
			out = append(out, u)
		}
	}
	return out
}

// failureReason maps a per-user error to its metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCandidatePool):
		return "invalid_pool"
	case errors.Is(err, ErrUnderlongFeed):
		return "underlong_feed"
	default:
		return "other"
	}
}
