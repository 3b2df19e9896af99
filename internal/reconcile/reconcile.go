// Package reconcile merges partial, sometimes-conflicting per-source project
// snapshots into one canonical record per project, and records cross-source
// inconsistency reports as a diagnostic side channel.
//
// Merge precedence, per field group: cached baseline, then VCS (identity and
// commit/PR/issue counts), then planning (progress, story/task counts,
// category, status), then the activity log (lastActivity and totalCommits,
// only when its timestamp is more recent). Planning is authoritative for
// completion; activity logs are authoritative for recency.
package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	pulseerr "github.com/p-blackswan/project-pulse/internal/errors"
	"github.com/p-blackswan/project-pulse/internal/metrics"
	"github.com/p-blackswan/project-pulse/internal/models"
)

// Engine owns the reconciliation state: the inconsistency report store and
// the last-reconciliation timestamp. All other computation is pure. Multiple
// independent engines can coexist; nothing is package-level.
type Engine struct {
	mu                 sync.RWMutex
	reports            map[string][]models.InconsistencyReport
	lastReconciliation time.Time

	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEngine creates a reconciliation engine. metrics may be nil.
func NewEngine(m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		reports: make(map[string][]models.InconsistencyReport),
		logger:  logger.With().Str("component", "reconcile.engine").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// Reconcile merges the given source snapshots into a canonical record.
// A nil member of sources means "no signal from that provider" and is
// skipped, never an error. Any internal failure is wrapped as a
// ReconciliationError carrying the project name; other projects are
// unaffected.
func (e *Engine) Reconcile(projectName string, sources models.SourceSet) (rec *models.CanonicalProjectRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = pulseerr.NewReconciliationError(projectName, fmt.Errorf("panic: %v", r))
		}
		if err != nil && e.metrics != nil {
			e.metrics.RecordReconciliation("error")
		}
	}()

	if projectName == "" {
		return nil, pulseerr.NewReconciliationError(projectName, pulseerr.ErrInvalidInput)
	}

	merged := baseline(projectName, sources.Cached)
	applyVCS(merged, sources.VCS)
	applyPlanning(merged, sources.Planning)
	applyActivity(merged, sources.Activity)
	e.normalize(merged)
	merged.ReconciledAt = e.now()

	reports := Detect(merged, sources, e.now())
	e.storeReports(projectName, reports)

	e.mu.Lock()
	e.lastReconciliation = merged.ReconciledAt
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordReconciliation("ok")
	}
	return merged, nil
}

// LastReconciliation returns when the engine last produced a record.
func (e *Engine) LastReconciliation() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReconciliation
}

// baseline seeds the merge from the cached canonical record, or an empty
// record when there is no baseline. The copy keeps the cached record
// immutable; derived sub-objects are never carried forward.
func baseline(projectName string, cached *models.CanonicalProjectRecord) *models.CanonicalProjectRecord {
	if cached == nil {
		return &models.CanonicalProjectRecord{Name: projectName}
	}
	rec := *cached
	rec.Name = projectName
	rec.Health = nil
	rec.Analytics = nil
	if cached.LastActivity != nil {
		t := *cached.LastActivity
		rec.LastActivity = &t
	}
	return &rec
}

// applyVCS overlays identity and volume counts from the VCS provider.
func applyVCS(rec *models.CanonicalProjectRecord, vcs *models.VCSSnapshot) {
	if vcs == nil {
		return
	}
	if vcs.Repository != nil {
		rec.Repository = *vcs.Repository
	}
	if vcs.Commits != nil {
		rec.TotalCommits = *vcs.Commits
	}
	if vcs.PRs != nil {
		rec.PRs = *vcs.PRs
	}
	if vcs.Issues != nil {
		rec.Issues = *vcs.Issues
	}
	if vcs.LastActivity != nil {
		t := *vcs.LastActivity
		rec.LastActivity = &t
	}
	if vcs.HasPRD != nil {
		rec.HasPRD = *vcs.HasPRD
	}
	if vcs.HasTaskList != nil {
		rec.HasTaskList = *vcs.HasTaskList
	}
}

// applyPlanning overlays completion data. A present zero (progress=0) is a
// real value and overrides the baseline; only nil means missing.
func applyPlanning(rec *models.CanonicalProjectRecord, plan *models.PlanningSnapshot) {
	if plan == nil {
		return
	}
	if plan.Progress != nil {
		rec.Progress = *plan.Progress
	}
	if plan.StoriesTotal != nil {
		rec.StoriesTotal = *plan.StoriesTotal
	}
	if plan.StoriesCompleted != nil {
		rec.StoriesCompleted = *plan.StoriesCompleted
	}
	if plan.TasksTotal != nil {
		rec.TasksTotal = *plan.TasksTotal
	}
	if plan.TasksCompleted != nil {
		rec.TasksCompleted = *plan.TasksCompleted
	}
	if plan.Category != nil {
		rec.Category = *plan.Category
	}
	if plan.Status != nil {
		rec.Status = *plan.Status
	}
}

// applyActivity overlays recency data, but only when the activity log has a
// newer timestamp than whatever the earlier sources provided.
func applyActivity(rec *models.CanonicalProjectRecord, act *models.ActivitySnapshot) {
	if act == nil || act.LastActivity == nil {
		return
	}
	if rec.LastActivity != nil && !act.LastActivity.After(*rec.LastActivity) {
		return
	}
	t := *act.LastActivity
	rec.LastActivity = &t
	if act.TotalCommits != nil {
		rec.TotalCommits = *act.TotalCommits
	}
}

// normalize enforces the canonical invariants after merge. Violations are
// recovered by clamping or defaulting and logged, never propagated.
func (e *Engine) normalize(rec *models.CanonicalProjectRecord) {
	if rec.Progress < 0 || rec.Progress > 100 {
		e.logRecovered(&pulseerr.ValidationError{
			ProjectName: rec.Name, Field: "progress",
			Message: fmt.Sprintf("value %d outside [0,100], clamped", rec.Progress),
		})
		rec.Progress = clamp(rec.Progress, 0, 100)
	}
	if rec.StoriesTotal < 0 {
		rec.StoriesTotal = 0
	}
	if rec.TasksTotal < 0 {
		rec.TasksTotal = 0
	}
	if rec.StoriesCompleted < 0 {
		rec.StoriesCompleted = 0
	}
	if rec.TasksCompleted < 0 {
		rec.TasksCompleted = 0
	}
	if rec.StoriesCompleted > rec.StoriesTotal {
		e.logRecovered(&pulseerr.ValidationError{
			ProjectName: rec.Name, Field: "stories_completed",
			Message: fmt.Sprintf("%d exceeds total %d, clamped", rec.StoriesCompleted, rec.StoriesTotal),
		})
		rec.StoriesCompleted = rec.StoriesTotal
	}
	if rec.TasksCompleted > rec.TasksTotal {
		e.logRecovered(&pulseerr.ValidationError{
			ProjectName: rec.Name, Field: "tasks_completed",
			Message: fmt.Sprintf("%d exceeds total %d, clamped", rec.TasksCompleted, rec.TasksTotal),
		})
		rec.TasksCompleted = rec.TasksTotal
	}
	if rec.TotalCommits < 0 {
		rec.TotalCommits = 0
	}
	if rec.Category == "" {
		rec.Category = models.CategoryUncategorized
	}
	if rec.Status == "" {
		rec.Status = models.StatusUnknown
	}
}

func (e *Engine) logRecovered(ve *pulseerr.ValidationError) {
	e.logger.Warn().
		Str("project", ve.ProjectName).
		Str("field", ve.Field).
		Msg(ve.Message)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
