// Package analytics derives completion, velocity, trend and blocked/stale
// work-item views from a canonical project record.
package analytics

import (
	"math"
	"time"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// ActivityLookup supplies per-work-item recency data from the planning
// provider's activity feed. Implementations live upstream of the engine and
// must not block; missing data is reported via the ok return, never an error.
type ActivityLookup interface {
	// WorkItems lists the project's tracked stories and tasks.
	WorkItems(project string) []models.WorkItem

	// LastTouched returns when an item last saw activity.
	LastTouched(project, itemID string) (time.Time, bool)

	// WeeklyVelocities returns recent per-week velocity buckets,
	// oldest first.
	WeeklyVelocities(project string) []float64
}

// Thresholds and the velocity window, overridable per engine.
const (
	DefaultVelocityWeeks    = 4
	DefaultBlockedAfterDays = 14
	DefaultStaleAfterDays   = 7

	// assumedStaleDays is used when an incomplete item has no recorded
	// activity at all: treat it as maximally stale rather than failing.
	assumedStaleDays = 30

	// slowVelocityCutoff marks a project as slow for blocked-item priority.
	slowVelocityCutoff = 5

	// trendDelta is the fractional change separating stable from a trend.
	trendDelta = 0.10
)

// Engine computes analytics snapshots. Stateless apart from configuration.
type Engine struct {
	velocityWeeks    int
	blockedAfterDays int
	staleAfterDays   int
	now              func() time.Time
}

// Option adjusts an Engine.
type Option func(*Engine)

// WithVelocityWeeks overrides the assumed completion window.
func WithVelocityWeeks(weeks int) Option {
	return func(e *Engine) {
		if weeks > 0 {
			e.velocityWeeks = weeks
		}
	}
}

// WithThresholds overrides the blocked/stale day thresholds.
func WithThresholds(blockedDays, staleDays int) Option {
	return func(e *Engine) {
		if blockedDays > 0 {
			e.blockedAfterDays = blockedDays
		}
		if staleDays > 0 {
			e.staleAfterDays = staleDays
		}
	}
}

// NewEngine creates an analytics engine with the default thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		velocityWeeks:    DefaultVelocityWeeks,
		blockedAfterDays: DefaultBlockedAfterDays,
		staleAfterDays:   DefaultStaleAfterDays,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze computes the analytics snapshot for a record. lookup may be nil,
// in which case item detection is skipped and the trend is stable.
func (e *Engine) Analyze(rec *models.CanonicalProjectRecord, lookup ActivityLookup) *models.AnalyticsSnapshot {
	snap := &models.AnalyticsSnapshot{
		StoryPct:   pct(rec.StoriesCompleted, rec.StoriesTotal),
		TaskPct:    pct(rec.TasksCompleted, rec.TasksTotal),
		OverallPct: pct(rec.StoriesCompleted+rec.TasksCompleted, rec.StoriesTotal+rec.TasksTotal),
		Trend:      models.TrendStable,
	}

	// Velocity models items completed per week under the fixed assumption
	// that all completion happened within the configured window.
	completionRate := float64(snap.OverallPct) / 100.0
	snap.Velocity = int(math.Round(completionRate * float64(e.velocityWeeks)))

	if lookup == nil {
		return snap
	}

	snap.Trend = trend(lookup.WeeklyVelocities(rec.Name))
	snap.BlockedItems, snap.StaleItems = e.detectItems(rec.Name, lookup, snap.Velocity)
	return snap
}

// pct is completed/total*100 rounded, defined as 0 when total is 0.
func pct(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(total) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// trend compares the two most recent weekly buckets.
func trend(weekly []float64) models.Trend {
	if len(weekly) < 2 {
		return models.TrendStable
	}
	prev := weekly[len(weekly)-2]
	cur := weekly[len(weekly)-1]

	if prev == 0 {
		if cur > 0 {
			return models.TrendIncreasing
		}
		return models.TrendStable
	}

	change := (cur - prev) / prev
	switch {
	case change > trendDelta:
		return models.TrendIncreasing
	case change < -trendDelta:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// detectItems walks every incomplete work item once, flagging blocked items
// at the blocked threshold and stale items at the (lower) stale threshold.
// An item with no recorded activity is assumed maximally stale.
func (e *Engine) detectItems(project string, lookup ActivityLookup, velocity int) (blocked, stale []models.ItemAlert) {
	now := e.now()

	for _, item := range lookup.WorkItems(project) {
		if item.Completed {
			continue
		}

		days := assumedStaleDays
		if ts, ok := lookup.LastTouched(project, item.ID); ok {
			days = int(now.Sub(ts).Hours() / 24)
			if days < 0 {
				days = 0
			}
		}

		if days >= e.blockedAfterDays {
			blocked = append(blocked, models.ItemAlert{
				ItemID:            item.ID,
				Name:              item.Name,
				Type:              item.Type,
				DaysSinceActivity: days,
				Priority:          blockedPriority(days, item.Type, velocity),
			})
		}
		if days >= e.staleAfterDays {
			stale = append(stale, models.ItemAlert{
				ItemID:            item.ID,
				Name:              item.Name,
				Type:              item.Type,
				DaysSinceActivity: days,
				Priority:          stalePriority(days, item.Type),
			})
		}
	}
	return blocked, stale
}

// blockedPriority ranks blocked items: ten points per idle day, stories ahead
// of tasks, slow projects ahead of fast ones.
func blockedPriority(days int, t models.WorkItemType, velocity int) int {
	p := days * 10
	if t == models.ItemStory {
		p += 50
	}
	if velocity < slowVelocityCutoff {
		p += 30
	}
	return p
}

// stalePriority uses its own, smaller scale so stale and blocked rankings
// are not comparable.
func stalePriority(days int, t models.WorkItemType) int {
	p := days * 5
	if t == models.ItemStory {
		p += 25
	}
	return p
}
