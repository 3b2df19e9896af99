package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/project-pulse/internal/models"
)

func TestPlanningFeedSnapshotRoundTrip(t *testing.T) {
	f := NewPlanningFeed()
	progress := 40

	assert.Nil(t, f.Snapshot("alpha"), "unknown project has no signal")

	f.SetSnapshot("alpha", &models.PlanningSnapshot{Progress: &progress})
	snap := f.Snapshot("alpha")
	require.NotNil(t, snap)
	assert.Equal(t, 40, *snap.Progress)

	// Clearing removes the signal.
	f.SetSnapshot("alpha", nil)
	assert.Nil(t, f.Snapshot("alpha"))
}

func TestPlanningFeedSnapshotIsCopy(t *testing.T) {
	f := NewPlanningFeed()
	progress := 40
	f.SetSnapshot("alpha", &models.PlanningSnapshot{Progress: &progress})

	got := f.Snapshot("alpha")
	newProgress := 99
	got.Progress = &newProgress

	assert.Equal(t, 40, *f.Snapshot("alpha").Progress)
}

func TestPlanningFeedWorkItemsAndTouches(t *testing.T) {
	f := NewPlanningFeed()
	f.SetWorkItems("alpha", []models.WorkItem{
		{ID: "s1", Type: models.ItemStory},
		{ID: "t1", Type: models.ItemTask, Completed: true},
	})

	items := f.WorkItems("alpha")
	require.Len(t, items, 2)

	_, ok := f.LastTouched("alpha", "s1")
	assert.False(t, ok)

	at := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	f.Touch("alpha", "s1", at)
	got, ok := f.LastTouched("alpha", "s1")
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestPlanningFeedWeeklyVelocities(t *testing.T) {
	f := NewPlanningFeed()
	f.RecordWeeklyVelocity("alpha", 3)
	f.RecordWeeklyVelocity("alpha", 5)

	assert.Equal(t, []float64{3, 5}, f.WeeklyVelocities("alpha"))
	assert.Empty(t, f.WeeklyVelocities("beta"))
}
