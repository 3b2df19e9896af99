package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// Divergence thresholds. Story counts have no threshold: any difference
// between two exact counts is a mismatch.
const (
	progressMismatchPoints = 5
	activityMismatchWindow = 7 * 24 * time.Hour
)

// Report field names.
const (
	FieldProgressMismatch   = "progress_mismatch"
	FieldStoryCountMismatch = "story_count_mismatch"
	FieldActivityMismatch   = "activity_mismatch"
)

// Detect compares overlapping fields across the sources that fed a merge and
// returns a report per divergence. Reports are diagnostic only; they never
// alter the canonical record or abort reconciliation.
func Detect(canonical *models.CanonicalProjectRecord, sources models.SourceSet, at time.Time) []models.InconsistencyReport {
	var reports []models.InconsistencyReport

	// Progress: both cached baseline and planning report it, and the merged
	// choice disagrees with either by more than the threshold.
	if sources.Cached != nil && sources.Planning != nil && sources.Planning.Progress != nil {
		cachedProgress := sources.Cached.Progress
		planProgress := *sources.Planning.Progress
		if absInt(canonical.Progress-cachedProgress) > progressMismatchPoints ||
			absInt(canonical.Progress-planProgress) > progressMismatchPoints {
			reports = append(reports, report(canonical.Name, FieldProgressMismatch,
				map[string]any{"cached": cachedProgress, "planning": planProgress},
				canonical.Progress, at))
		}
	}

	// Story totals: exact disagreement between any two reporting sources.
	if sources.Cached != nil && sources.Planning != nil && sources.Planning.StoriesTotal != nil {
		if sources.Cached.StoriesTotal != *sources.Planning.StoriesTotal {
			reports = append(reports, report(canonical.Name, FieldStoryCountMismatch,
				map[string]any{"cached": sources.Cached.StoriesTotal, "planning": *sources.Planning.StoriesTotal},
				canonical.StoriesTotal, at))
		}
	}

	// Last activity: VCS and activity log more than a week apart.
	if sources.VCS != nil && sources.VCS.LastActivity != nil &&
		sources.Activity != nil && sources.Activity.LastActivity != nil {
		gap := sources.VCS.LastActivity.Sub(*sources.Activity.LastActivity)
		if gap < 0 {
			gap = -gap
		}
		if gap > activityMismatchWindow {
			var reconciled any
			if canonical.LastActivity != nil {
				reconciled = canonical.LastActivity.UTC().Format(time.RFC3339)
			}
			reports = append(reports, report(canonical.Name, FieldActivityMismatch,
				map[string]any{
					"vcs":      sources.VCS.LastActivity.UTC().Format(time.RFC3339),
					"activity": sources.Activity.LastActivity.UTC().Format(time.RFC3339),
				},
				reconciled, at))
		}
	}

	return reports
}

func report(project, field string, values map[string]any, reconciled any, at time.Time) models.InconsistencyReport {
	return models.InconsistencyReport{
		ID:              uuid.NewString(),
		ProjectName:     project,
		Field:           field,
		SourceValues:    values,
		ReconciledValue: reconciled,
		Timestamp:       at,
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// storeReports appends detection results to the engine's report store.
func (e *Engine) storeReports(project string, reports []models.InconsistencyReport) {
	if len(reports) == 0 {
		return
	}
	e.mu.Lock()
	e.reports[project] = append(e.reports[project], reports...)
	e.mu.Unlock()

	for _, r := range reports {
		if e.metrics != nil {
			e.metrics.RecordInconsistency(r.Field)
		}
		e.logger.Debug().
			Str("project", r.ProjectName).
			Str("field", r.Field).
			Msg("inconsistency recorded")
	}
}

// Reports returns the accumulated reports for one project.
func (e *Engine) Reports(project string) []models.InconsistencyReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.InconsistencyReport, len(e.reports[project]))
	copy(out, e.reports[project])
	return out
}

// AllReports returns every accumulated report, keyed by project name.
func (e *Engine) AllReports() map[string][]models.InconsistencyReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]models.InconsistencyReport, len(e.reports))
	for name, rs := range e.reports {
		cp := make([]models.InconsistencyReport, len(rs))
		copy(cp, rs)
		out[name] = cp
	}
	return out
}

// ClearReports drops the accumulated reports for one project.
// Returns how many were dropped.
func (e *Engine) ClearReports(project string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.reports[project])
	delete(e.reports, project)
	return n
}

// ClearAllReports drops every accumulated report.
// Returns how many were dropped.
func (e *Engine) ClearAllReports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, rs := range e.reports {
		n += len(rs)
	}
	e.reports = make(map[string][]models.InconsistencyReport)
	return n
}
