// Package models defines the data model shared by the reconciliation engine:
// per-source snapshots, the canonical project record, and the derived
// health/analytics views. Snapshot fields are pointers so a missing value is
// distinguishable from a present zero: planning reporting progress=0 is a
// real signal, not an absence.
package models

import "time"

// VCSSnapshot is the view of a project reported by the version-control
// provider. Absence of the whole snapshot means "no VCS signal", not an error.
type VCSSnapshot struct {
	Commits      *int       `json:"commits,omitempty"`
	PRs          *int       `json:"prs,omitempty"`
	Issues       *int       `json:"issues,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	Repository   *string    `json:"repository,omitempty"`
	HasPRD       *bool      `json:"has_prd,omitempty"`
	HasTaskList  *bool      `json:"has_task_list,omitempty"`
}

// PlanningSnapshot is the view reported by the planning/tracking provider.
// Planning is authoritative for completion data when present.
type PlanningSnapshot struct {
	Progress         *int    `json:"progress,omitempty"`
	StoriesTotal     *int    `json:"stories_total,omitempty"`
	StoriesCompleted *int    `json:"stories_completed,omitempty"`
	TasksTotal       *int    `json:"tasks_total,omitempty"`
	TasksCompleted   *int    `json:"tasks_completed,omitempty"`
	Category         *string `json:"category,omitempty"`
	Status           *string `json:"status,omitempty"`
}

// ActivitySnapshot is derived from the rolling commit-activity log.
// Authoritative for recency: it only wins when its timestamp is newer.
type ActivitySnapshot struct {
	LastActivity *time.Time `json:"last_activity,omitempty"`
	TotalCommits *int       `json:"total_commits,omitempty"`
}

// SourceSet groups the up-to-four snapshots feeding one reconciliation.
// Any member may be nil.
type SourceSet struct {
	Cached   *CanonicalProjectRecord `json:"cached,omitempty"`
	VCS      *VCSSnapshot            `json:"vcs,omitempty"`
	Planning *PlanningSnapshot       `json:"planning,omitempty"`
	Activity *ActivitySnapshot       `json:"activity,omitempty"`
}

// Empty reports whether no source supplied any data.
func (s SourceSet) Empty() bool {
	return s.Cached == nil && s.VCS == nil && s.Planning == nil && s.Activity == nil
}

// CategoryUncategorized is the sentinel for projects with no known category.
const CategoryUncategorized = "uncategorized"

// StatusUnknown is the sentinel for projects with no known status.
const StatusUnknown = "unknown"

// CanonicalProjectRecord is the single merged truth for a project.
//
// Invariants (enforced by the reconciler, never assumed of inputs):
// Progress in [0,100]; StoriesCompleted <= StoriesTotal;
// TasksCompleted <= TasksTotal.
type CanonicalProjectRecord struct {
	Name             string     `json:"name"`
	Repository       string     `json:"repository,omitempty"`
	Category         string     `json:"category"`
	Status           string     `json:"status"`
	Progress         int        `json:"progress"`
	StoriesTotal     int        `json:"stories_total"`
	StoriesCompleted int        `json:"stories_completed"`
	TasksTotal       int        `json:"tasks_total"`
	TasksCompleted   int        `json:"tasks_completed"`
	LastActivity     *time.Time `json:"last_activity,omitempty"`
	TotalCommits     int        `json:"total_commits"`
	PRs              int        `json:"prs"`
	Issues           int        `json:"issues"`
	HasPRD           bool       `json:"has_prd"`
	HasTaskList      bool       `json:"has_task_list"`
	ReconciledAt     time.Time  `json:"reconciled_at"`

	Health    *HealthAssessment  `json:"health,omitempty"`
	Analytics *AnalyticsSnapshot `json:"analytics,omitempty"`
}

// HealthStatus classifies a health score into a coarse bucket.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent" // score >= 80
	HealthGood      HealthStatus = "good"      // score >= 60
	HealthFair      HealthStatus = "fair"      // score >= 40
	HealthPoor      HealthStatus = "poor"      // score >= 20
	HealthCritical  HealthStatus = "critical"  // below 20
)

// FactorBreakdown holds the six normalized (0-100) sub-scores that combine
// into the overall health score.
type FactorBreakdown struct {
	Activity      int `json:"activity"`
	Commits       int `json:"commits"`
	PRs           int `json:"prs"`
	Issues        int `json:"issues"`
	Documentation int `json:"documentation"`
	PRD           int `json:"prd"`
}

// HealthAssessment is the derived well-being indicator for a project.
type HealthAssessment struct {
	Score       int             `json:"score"`
	Status      HealthStatus    `json:"status"`
	RiskFactors []string        `json:"risk_factors"`
	Factors     FactorBreakdown `json:"factors"`
}

// Trend describes the direction of recent velocity change.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// WorkItemType distinguishes stories from tasks.
type WorkItemType string

const (
	ItemStory WorkItemType = "story"
	ItemTask  WorkItemType = "task"
)

// WorkItem is an individual planning item tracked for blocked/stale detection.
type WorkItem struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      WorkItemType `json:"type"`
	Completed bool         `json:"completed"`
}

// ItemAlert flags one incomplete work item as blocked or stale.
type ItemAlert struct {
	ItemID            string       `json:"item_id"`
	Name              string       `json:"name"`
	Type              WorkItemType `json:"type"`
	DaysSinceActivity int          `json:"days_since_activity"`
	Priority          int          `json:"priority"`
}

// AnalyticsSnapshot is the derived completion/velocity view of a project.
type AnalyticsSnapshot struct {
	StoryPct     int         `json:"story_pct"`
	TaskPct      int         `json:"task_pct"`
	OverallPct   int         `json:"overall_pct"`
	Velocity     int         `json:"velocity"`
	Trend        Trend       `json:"trend"`
	BlockedItems []ItemAlert `json:"blocked_items"`
	StaleItems   []ItemAlert `json:"stale_items"`
}

// InconsistencyReport records a cross-source divergence observed during
// reconciliation. Purely diagnostic: it never mutates the canonical record.
type InconsistencyReport struct {
	ID              string         `json:"id"`
	ProjectName     string         `json:"project_name"`
	Field           string         `json:"field"`
	SourceValues    map[string]any `json:"source_values"`
	ReconciledValue any            `json:"reconciled_value"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Pagination describes the page window of a query result.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// PagedResult is a page of canonical records plus its pagination metadata.
type PagedResult struct {
	Data       []*CanonicalProjectRecord `json:"data"`
	Pagination Pagination                `json:"pagination"`
}

// CacheStats is the observability view of one cache instance.
type CacheStats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// BatchResult summarizes a batch reconciliation: per-project failures are
// excluded from Records and counted in Failed.
type BatchResult struct {
	Records []*CanonicalProjectRecord `json:"records"`
	Failed  map[string]string         `json:"failed,omitempty"`
}
