package source

import (
	"sync"
	"time"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// PlanningFeed is an in-memory mirror of the planning provider's data:
// per-project snapshots, tracked work items, item touch timestamps and weekly
// velocity buckets. It is populated by whatever ingests the planning tool's
// webhooks or exports, and read by the engine. Safe for concurrent use.
//
// It implements analytics.ActivityLookup.
type PlanningFeed struct {
	mu         sync.RWMutex
	snapshots  map[string]*models.PlanningSnapshot
	items      map[string][]models.WorkItem
	touches    map[string]map[string]time.Time
	velocities map[string][]float64
}

// NewPlanningFeed creates an empty feed.
func NewPlanningFeed() *PlanningFeed {
	return &PlanningFeed{
		snapshots:  make(map[string]*models.PlanningSnapshot),
		items:      make(map[string][]models.WorkItem),
		touches:    make(map[string]map[string]time.Time),
		velocities: make(map[string][]float64),
	}
}

// SetSnapshot replaces the planning snapshot for a project.
func (f *PlanningFeed) SetSnapshot(project string, snap *models.PlanningSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap == nil {
		delete(f.snapshots, project)
		return
	}
	f.snapshots[project] = snap
}

// Snapshot returns the current planning snapshot, or nil for "no signal".
func (f *PlanningFeed) Snapshot(project string) *models.PlanningSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.snapshots[project]
	if !ok {
		return nil
	}
	cp := *snap
	return &cp
}

// SetWorkItems replaces the tracked work items for a project.
func (f *PlanningFeed) SetWorkItems(project string, items []models.WorkItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[project] = append([]models.WorkItem(nil), items...)
}

// Touch records activity on a work item.
func (f *PlanningFeed) Touch(project, itemID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touches[project] == nil {
		f.touches[project] = make(map[string]time.Time)
	}
	f.touches[project][itemID] = at
}

// RecordWeeklyVelocity appends a weekly velocity bucket for a project.
func (f *PlanningFeed) RecordWeeklyVelocity(project string, velocity float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.velocities[project] = append(f.velocities[project], velocity)
}

// WorkItems lists the project's tracked stories and tasks.
func (f *PlanningFeed) WorkItems(project string) []models.WorkItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.WorkItem(nil), f.items[project]...)
}

// LastTouched returns when an item last saw activity.
func (f *PlanningFeed) LastTouched(project, itemID string) (time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.touches[project][itemID]
	return t, ok
}

// WeeklyVelocities returns recent per-week velocity buckets, oldest first.
func (f *PlanningFeed) WeeklyVelocities(project string) []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]float64(nil), f.velocities[project]...)
}
