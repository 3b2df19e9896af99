// Package source holds the thin collaborators that feed snapshots into the
// reconciliation engine. All blocking I/O lives here, upstream of the core:
// a provider that cannot deliver returns a nil snapshot, never an error the
// engine has to handle.
package source

import (
	"sort"
	"sync"
	"time"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// dateLayout keys the rolling series by calendar day.
const dateLayout = "2006-01-02"

// ActivityLog is a rolling commit-activity time series keyed by calendar day
// and project. It is safe for concurrent use and windowed on read, so stale
// days age out without explicit pruning.
type ActivityLog struct {
	mu         sync.RWMutex
	days       map[string]map[string]int
	windowDays int

	now func() time.Time
}

// NewActivityLog creates a log windowed to the given number of days.
// A non-positive window defaults to 90 days.
func NewActivityLog(windowDays int) *ActivityLog {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &ActivityLog{
		days:       make(map[string]map[string]int),
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Record adds commit counts for a project on a given day. Counts accumulate
// when the same day is recorded twice.
func (l *ActivityLog) Record(day time.Time, project string, commits int) {
	if commits <= 0 {
		return
	}
	key := day.UTC().Format(dateLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.days[key] == nil {
		l.days[key] = make(map[string]int)
	}
	l.days[key][project] += commits
}

// Snapshot derives the activity snapshot for a project from the windowed
// series. Returns nil when the project has no activity inside the window,
// meaning "no activity signal".
func (l *ActivityLog) Snapshot(project string) *models.ActivitySnapshot {
	cutoff := l.now().AddDate(0, 0, -l.windowDays).UTC().Format(dateLayout)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		total   int
		lastDay string
	)
	for day, byProject := range l.days {
		if day < cutoff {
			continue
		}
		count, ok := byProject[project]
		if !ok || count == 0 {
			continue
		}
		total += count
		if day > lastDay {
			lastDay = day
		}
	}

	if lastDay == "" {
		return nil
	}

	last, err := time.Parse(dateLayout, lastDay)
	if err != nil {
		return nil
	}
	return &models.ActivitySnapshot{
		LastActivity: &last,
		TotalCommits: &total,
	}
}

// Prune drops days that fell out of the window. Returns removed day count.
func (l *ActivityLog) Prune() int {
	cutoff := l.now().AddDate(0, 0, -l.windowDays).UTC().Format(dateLayout)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for day := range l.days {
		if day < cutoff {
			delete(l.days, day)
			removed++
		}
	}
	return removed
}

// Days lists the recorded days inside the window, oldest first.
func (l *ActivityLog) Days() []string {
	cutoff := l.now().AddDate(0, 0, -l.windowDays).UTC().Format(dateLayout)

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.days))
	for day := range l.days {
		if day >= cutoff {
			out = append(out, day)
		}
	}
	sort.Strings(out)
	return out
}
