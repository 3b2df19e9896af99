package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/project-pulse/internal/models"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fakeLookup is a canned ActivityLookup.
type fakeLookup struct {
	items      []models.WorkItem
	touches    map[string]time.Time
	velocities []float64
}

func (f *fakeLookup) WorkItems(string) []models.WorkItem { return f.items }
func (f *fakeLookup) LastTouched(_, itemID string) (time.Time, bool) {
	t, ok := f.touches[itemID]
	return t, ok
}
func (f *fakeLookup) WeeklyVelocities(string) []float64 { return f.velocities }

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(opts...)
	e.now = func() time.Time { return testNow }
	return e
}

func TestPercentages(t *testing.T) {
	e := newTestEngine(t)

	snap := e.Analyze(&models.CanonicalProjectRecord{
		Name:             "alpha",
		StoriesTotal:     10, StoriesCompleted: 7,
		TasksTotal:       4, TasksCompleted: 1,
	}, nil)

	assert.Equal(t, 70, snap.StoryPct)
	assert.Equal(t, 25, snap.TaskPct)
	assert.Equal(t, 57, snap.OverallPct) // 8/14 rounded
}

func TestPercentagesZeroTotals(t *testing.T) {
	e := newTestEngine(t)

	snap := e.Analyze(&models.CanonicalProjectRecord{Name: "empty"}, nil)
	assert.Equal(t, 0, snap.StoryPct)
	assert.Equal(t, 0, snap.TaskPct)
	assert.Equal(t, 0, snap.OverallPct)
	assert.Equal(t, 0, snap.Velocity)
	assert.Equal(t, models.TrendStable, snap.Trend)
}

func TestVelocityWindow(t *testing.T) {
	rec := &models.CanonicalProjectRecord{
		Name: "alpha", StoriesTotal: 4, StoriesCompleted: 3,
	}

	// 75% complete over the default 4-week window.
	snap := newTestEngine(t).Analyze(rec, nil)
	assert.Equal(t, 3, snap.Velocity)

	// Doubling the window doubles the modeled velocity.
	snap = newTestEngine(t, WithVelocityWeeks(8)).Analyze(rec, nil)
	assert.Equal(t, 6, snap.Velocity)
}

func TestBlockedItemPriority(t *testing.T) {
	// 20 idle days, story, velocity 3: 20*10 + 50 + 30 = 280.
	lookup := &fakeLookup{
		items: []models.WorkItem{
			{ID: "s1", Name: "checkout flow", Type: models.ItemStory},
		},
		touches: map[string]time.Time{"s1": testNow.AddDate(0, 0, -20)},
	}

	e := newTestEngine(t)
	// 3 of 4 stories complete models velocity 3.
	snap := e.Analyze(&models.CanonicalProjectRecord{
		Name: "alpha", StoriesTotal: 4, StoriesCompleted: 3,
	}, lookup)

	require.Len(t, snap.BlockedItems, 1)
	blocked := snap.BlockedItems[0]
	assert.Equal(t, 20, blocked.DaysSinceActivity)
	assert.Equal(t, 280, blocked.Priority)
	assert.Equal(t, models.ItemStory, blocked.Type)
}

func TestBlockedTaskWithFastVelocity(t *testing.T) {
	lookup := &fakeLookup{
		items:   []models.WorkItem{{ID: "t1", Type: models.ItemTask}},
		touches: map[string]time.Time{"t1": testNow.AddDate(0, 0, -15)},
	}

	// OverallPct 100 of 20 stories... use a record with velocity >= 5:
	// 20/20 complete over 8 weeks -> velocity 8.
	e := newTestEngine(t, WithVelocityWeeks(8))
	snap := e.Analyze(&models.CanonicalProjectRecord{
		Name: "fast", StoriesTotal: 20, StoriesCompleted: 20,
	}, lookup)

	require.Len(t, snap.BlockedItems, 1)
	// No story bonus, no slow-velocity bonus.
	assert.Equal(t, 150, snap.BlockedItems[0].Priority)
}

func TestMissingActivityAssumedMaximallyStale(t *testing.T) {
	lookup := &fakeLookup{
		items: []models.WorkItem{{ID: "s1", Type: models.ItemStory}},
	}

	e := newTestEngine(t)
	snap := e.Analyze(&models.CanonicalProjectRecord{Name: "alpha", StoriesTotal: 1}, lookup)

	require.Len(t, snap.BlockedItems, 1)
	assert.Equal(t, assumedStaleDays, snap.BlockedItems[0].DaysSinceActivity)
	require.Len(t, snap.StaleItems, 1)
}

func TestCompletedItemsIgnored(t *testing.T) {
	lookup := &fakeLookup{
		items: []models.WorkItem{
			{ID: "s1", Type: models.ItemStory, Completed: true},
			{ID: "s2", Type: models.ItemStory},
		},
		touches: map[string]time.Time{
			"s1": testNow.AddDate(0, 0, -60),
			"s2": testNow.AddDate(0, 0, -2),
		},
	}

	e := newTestEngine(t)
	snap := e.Analyze(&models.CanonicalProjectRecord{Name: "alpha", StoriesTotal: 2, StoriesCompleted: 1}, lookup)

	assert.Empty(t, snap.BlockedItems, "completed and fresh items never block")
	assert.Empty(t, snap.StaleItems)
}

func TestStaleThresholdBelowBlocked(t *testing.T) {
	lookup := &fakeLookup{
		items:   []models.WorkItem{{ID: "t1", Type: models.ItemTask}},
		touches: map[string]time.Time{"t1": testNow.AddDate(0, 0, -10)},
	}

	e := newTestEngine(t)
	snap := e.Analyze(&models.CanonicalProjectRecord{Name: "alpha", TasksTotal: 1}, lookup)

	// 10 days: stale (>=7) but not blocked (<14).
	assert.Empty(t, snap.BlockedItems)
	require.Len(t, snap.StaleItems, 1)
	assert.Equal(t, 10, snap.StaleItems[0].DaysSinceActivity)
	assert.Equal(t, 50, snap.StaleItems[0].Priority) // 10*5, task
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		weekly []float64
		want   models.Trend
	}{
		{"no history", nil, models.TrendStable},
		{"one bucket", []float64{5}, models.TrendStable},
		{"up 50%", []float64{4, 6}, models.TrendIncreasing},
		{"down 50%", []float64{6, 3}, models.TrendDecreasing},
		{"within band", []float64{10, 10.5}, models.TrendStable},
		{"exactly +10%", []float64{10, 11}, models.TrendStable},
		{"from zero", []float64{0, 2}, models.TrendIncreasing},
		{"flat zero", []float64{0, 0}, models.TrendStable},
		{"uses latest pair", []float64{1, 100, 100}, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{velocities: tt.weekly}
			snap := newTestEngine(t).Analyze(&models.CanonicalProjectRecord{Name: "alpha"}, lookup)
			assert.Equal(t, tt.want, snap.Trend)
		})
	}
}
