// Package query filters, sorts and paginates collections of canonical
// project records. Pure functions, no I/O.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// SortKey selects the ordering of query results.
type SortKey string

const (
	SortName         SortKey = "name"          // lexicographic ascending
	SortHealthScore  SortKey = "health_score"  // descending
	SortProgress     SortKey = "progress"      // descending
	SortLastActivity SortKey = "last_activity" // descending, missing last
)

// Activity status buckets derived from a record's last activity.
const (
	ActivityActive   = "active"   // within 7 days
	ActivityRecent   = "recent"   // within 30 days
	ActivityStale    = "stale"    // within 90 days
	ActivityInactive = "inactive" // older, or never seen
)

// Filters are AND-combined; zero values mean "no constraint".
type Filters struct {
	// Search matches case-insensitively as a substring of name, repository
	// or category.
	Search string `json:"search,omitempty"`

	// Exact matches.
	Category       string `json:"category,omitempty"`
	Status         string `json:"status,omitempty"`
	HealthStatus   string `json:"health_status,omitempty"`
	ActivityStatus string `json:"activity_status,omitempty"`

	// Inclusive numeric bounds.
	MinCompletion *int `json:"min_completion,omitempty"`
	MaxCompletion *int `json:"max_completion,omitempty"`
	MinVelocity   *int `json:"min_velocity,omitempty"`
	MaxVelocity   *int `json:"max_velocity,omitempty"`
}

// Page is a 1-indexed pagination request.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// LimitBounds clamps the requested page size; call sites choose their range.
type LimitBounds struct {
	Min int
	Max int
}

// DefaultLimitBounds is the clamp used by the HTTP surface.
var DefaultLimitBounds = LimitBounds{Min: 1, Max: 100}

// Query applies filters, sorts stably by key and returns the requested page.
// The input slice is never reordered; records are not copied.
func Query(records []*models.CanonicalProjectRecord, f Filters, key SortKey, page Page, bounds LimitBounds) models.PagedResult {
	matched := make([]*models.CanonicalProjectRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil && matches(rec, f, time.Now()) {
			matched = append(matched, rec)
		}
	}

	sortRecords(matched, key)
	return paginate(matched, page, bounds)
}

// ActivityStatusOf buckets a record by the age of its last activity.
func ActivityStatusOf(rec *models.CanonicalProjectRecord, now time.Time) string {
	if rec.LastActivity == nil {
		return ActivityInactive
	}
	age := now.Sub(*rec.LastActivity)
	switch {
	case age <= 7*24*time.Hour:
		return ActivityActive
	case age <= 30*24*time.Hour:
		return ActivityRecent
	case age <= 90*24*time.Hour:
		return ActivityStale
	default:
		return ActivityInactive
	}
}

func matches(rec *models.CanonicalProjectRecord, f Filters, now time.Time) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(rec.Name), needle) &&
			!strings.Contains(strings.ToLower(rec.Repository), needle) &&
			!strings.Contains(strings.ToLower(rec.Category), needle) {
			return false
		}
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.HealthStatus != "" {
		if rec.Health == nil || string(rec.Health.Status) != f.HealthStatus {
			return false
		}
	}
	if f.ActivityStatus != "" && ActivityStatusOf(rec, now) != f.ActivityStatus {
		return false
	}

	completion := completionOf(rec)
	if f.MinCompletion != nil && completion < *f.MinCompletion {
		return false
	}
	if f.MaxCompletion != nil && completion > *f.MaxCompletion {
		return false
	}

	velocity := velocityOf(rec)
	if f.MinVelocity != nil && velocity < *f.MinVelocity {
		return false
	}
	if f.MaxVelocity != nil && velocity > *f.MaxVelocity {
		return false
	}
	return true
}

// completionOf prefers the analytics overall percentage and falls back to
// the reconciled progress field.
func completionOf(rec *models.CanonicalProjectRecord) int {
	if rec.Analytics != nil {
		return rec.Analytics.OverallPct
	}
	return rec.Progress
}

func velocityOf(rec *models.CanonicalProjectRecord) int {
	if rec.Analytics != nil {
		return rec.Analytics.Velocity
	}
	return 0
}

func healthScoreOf(rec *models.CanonicalProjectRecord) int {
	if rec.Health != nil {
		return rec.Health.Score
	}
	return -1 // unscored records sort below a genuine zero
}

func sortRecords(recs []*models.CanonicalProjectRecord, key SortKey) {
	switch key {
	case SortHealthScore:
		sort.SliceStable(recs, func(i, j int) bool {
			return healthScoreOf(recs[i]) > healthScoreOf(recs[j])
		})
	case SortProgress:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Progress > recs[j].Progress
		})
	case SortLastActivity:
		sort.SliceStable(recs, func(i, j int) bool {
			a, b := recs[i].LastActivity, recs[j].LastActivity
			switch {
			case a == nil:
				return false // missing activity sorts last
			case b == nil:
				return true
			default:
				return a.After(*b)
			}
		})
	default:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Name < recs[j].Name
		})
	}
}

func paginate(recs []*models.CanonicalProjectRecord, page Page, bounds LimitBounds) models.PagedResult {
	limit := page.Limit
	if bounds.Min < 1 {
		bounds.Min = 1
	}
	if bounds.Max < bounds.Min {
		bounds.Max = bounds.Min
	}
	if limit < bounds.Min {
		limit = bounds.Min
	}
	if limit > bounds.Max {
		limit = bounds.Max
	}

	p := page.Page
	if p < 1 {
		p = 1
	}

	total := len(recs)
	totalPages := (total + limit - 1) / limit

	start := (p - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	data := make([]*models.CanonicalProjectRecord, end-start)
	copy(data, recs[start:end])

	return models.PagedResult{
		Data: data,
		Pagination: models.Pagination{
			Page:       p,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p < totalPages,
			HasPrev:    p > 1 && total > 0,
		},
	}
}
