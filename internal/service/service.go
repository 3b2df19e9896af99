// Package service wires the reconciliation engine, health scorer, analytics
// engine and caches behind one facade. It owns the canonical record set and
// the caching policy; the packages underneath stay pure.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/project-pulse/internal/analytics"
	"github.com/p-blackswan/project-pulse/internal/cache"
	"github.com/p-blackswan/project-pulse/internal/config"
	pulseerr "github.com/p-blackswan/project-pulse/internal/errors"
	"github.com/p-blackswan/project-pulse/internal/health"
	"github.com/p-blackswan/project-pulse/internal/metrics"
	"github.com/p-blackswan/project-pulse/internal/models"
	"github.com/p-blackswan/project-pulse/internal/query"
	"github.com/p-blackswan/project-pulse/internal/reconcile"
)

// Cache tag applied to every query result, so any reconciliation can
// invalidate all cached query pages in one call.
const tagQueries = "queries"

// Service is the reconciliation-and-analytics facade.
type Service struct {
	cfg       *config.Config
	engine    *reconcile.Engine
	scorer    *health.Scorer
	analytics *analytics.Engine
	lookup    analytics.ActivityLookup
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	// Optional snapshot providers for Refresh.
	vcs      VCSProvider
	planning PlanningProvider
	activity ActivityProvider

	mu      sync.RWMutex
	records map[string]*models.CanonicalProjectRecord

	recordCache *cache.TTLCache[*models.CanonicalProjectRecord]
	queryCache  *cache.TaggedCache[models.PagedResult]
}

// New creates a service. lookup and m may be nil.
func New(
	cfg *config.Config,
	engine *reconcile.Engine,
	scorer *health.Scorer,
	an *analytics.Engine,
	lookup analytics.ActivityLookup,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		engine:      engine,
		scorer:      scorer,
		analytics:   an,
		lookup:      lookup,
		logger:      logger.With().Str("component", "service").Logger(),
		metrics:     m,
		records:     make(map[string]*models.CanonicalProjectRecord),
		recordCache: cache.NewTTL[*models.CanonicalProjectRecord](),
		queryCache:  cache.NewTagged[models.PagedResult](cfg.CacheMaxSize, logger),
	}
}

// ReconcileProject merges the supplied snapshots into a fresh canonical
// record, enriches it with analytics and health, stores it and invalidates
// dependent query caches. When the caller provides no cached baseline, the
// project's previous canonical record is used as one.
func (s *Service) ReconcileProject(ctx context.Context, name string, sources models.SourceSet) (*models.CanonicalProjectRecord, error) {
	start := time.Now()

	if sources.Cached == nil {
		sources.Cached = s.previous(name)
	}

	rec, err := s.engine.Reconcile(name, sources)
	if err != nil {
		return nil, err
	}
	s.enrich(rec)
	s.store(rec)

	if s.metrics != nil {
		s.metrics.ObserveReconcileDuration("single", time.Since(start).Seconds())
	}
	return rec, nil
}

// ReconcileBatch merges many projects with partial-success semantics: a
// project that fails is logged, counted in the result's Failed map and
// skipped, while the rest proceed.
func (s *Service) ReconcileBatch(ctx context.Context, inputs map[string]models.SourceSet) models.BatchResult {
	start := time.Now()

	seeded := make(map[string]models.SourceSet, len(inputs))
	for name, src := range inputs {
		if src.Cached == nil {
			src.Cached = s.previous(name)
		}
		seeded[name] = src
	}

	res := s.engine.ReconcileBatch(ctx, seeded)
	for _, rec := range res.Records {
		s.enrich(rec)
		s.store(rec)
	}

	if s.metrics != nil {
		s.metrics.ObserveReconcileDuration("batch", time.Since(start).Seconds())
	}
	s.logger.Info().
		Int("succeeded", len(res.Records)).
		Int("failed", len(res.Failed)).
		Msg("batch reconciliation complete")
	return res
}

// GetProject returns the current canonical record for a project.
func (s *Service) GetProject(name string) (*models.CanonicalProjectRecord, error) {
	key := cache.Key("project.get", name)
	if rec, ok := s.recordCache.Get(key); ok {
		s.recordCacheOp("record", "hit")
		return rec, nil
	}
	s.recordCacheOp("record", "miss")

	rec := s.previous(name)
	if rec == nil {
		return nil, pulseerr.ErrNotFound
	}
	s.recordCache.Set(key, rec, s.cfg.CacheTTL)
	return rec, nil
}

// ListProjects returns all canonical records sorted by name.
func (s *Service) ListProjects() []*models.CanonicalProjectRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.CanonicalProjectRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// QueryProjects answers a filtered, sorted, paged query, serving repeats of
// the same query from the tagged cache. Cache keys are deterministic in the
// full parameter set, so distinct filters never collide.
func (s *Service) QueryProjects(f query.Filters, key query.SortKey, page query.Page) models.PagedResult {
	bounds := query.LimitBounds{Min: s.cfg.PageLimitMin, Max: s.cfg.PageLimitMax}

	cacheKey := cache.Key("projects.query", struct {
		Filters query.Filters  `json:"filters"`
		Sort    query.SortKey  `json:"sort"`
		Page    query.Page     `json:"page"`
	}{f, key, page})

	if res, ok := s.queryCache.Get(cacheKey); ok {
		s.recordCacheOp("query", "hit")
		if s.metrics != nil {
			s.metrics.RecordQuery("cached")
		}
		return res
	}
	s.recordCacheOp("query", "miss")

	res := query.Query(s.ListProjects(), f, key, page, bounds)
	s.queryCache.Set(cacheKey, res, cache.SetOptions{
		TTL:      s.cfg.CacheTTL,
		Priority: len(res.Data), // pages with more hits are worth keeping
		Tags:     []string{tagQueries},
	})
	if s.metrics != nil {
		s.metrics.RecordQuery("computed")
	}
	return res
}

// Reports returns the accumulated inconsistency reports for one project.
func (s *Service) Reports(project string) []models.InconsistencyReport {
	return s.engine.Reports(project)
}

// AllReports returns every accumulated inconsistency report.
func (s *Service) AllReports() map[string][]models.InconsistencyReport {
	return s.engine.AllReports()
}

// ClearReports drops reports for one project, or all when project is empty.
func (s *Service) ClearReports(project string) int {
	if project == "" {
		return s.engine.ClearAllReports()
	}
	return s.engine.ClearReports(project)
}

// CacheStats exposes the counters of both caches.
func (s *Service) CacheStats() map[string]models.CacheStats {
	return map[string]models.CacheStats{
		"record": s.recordCache.Stats(),
		"query":  s.queryCache.Stats(),
	}
}

// Start launches the background cache sweeps. They stop when ctx ends.
func (s *Service) Start(ctx context.Context) {
	go s.queryCache.StartSweep(ctx, s.cfg.CacheSweepEvery)
	go s.sweepRecordCache(ctx)
}

func (s *Service) sweepRecordCache(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CacheSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.recordCache.Sweep(); n > 0 {
				s.logger.Debug().Int("expired", n).Msg("record cache sweep")
			}
			if s.metrics != nil {
				s.metrics.SetCacheSize("record", float64(s.recordCache.Len()))
				s.metrics.SetCacheSize("query", float64(s.queryCache.Len()))
			}
		}
	}
}

// previous returns the stored canonical record, or nil.
func (s *Service) previous(name string) *models.CanonicalProjectRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[name]
}

// enrich attaches analytics first so the scorer can see velocity when
// deriving risk factors.
func (s *Service) enrich(rec *models.CanonicalProjectRecord) {
	rec.Analytics = s.analytics.Analyze(rec, s.lookup)
	rec.Health = s.scorer.Score(rec)
}

func (s *Service) store(rec *models.CanonicalProjectRecord) {
	s.mu.Lock()
	s.records[rec.Name] = rec
	s.mu.Unlock()

	s.recordCache.Set(cache.Key("project.get", rec.Name), rec, s.cfg.CacheTTL)
	s.queryCache.InvalidateByTag(tagQueries)
}

func (s *Service) recordCacheOp(cacheName, result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOp(cacheName, result)
	}
}
