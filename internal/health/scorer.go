// Package health computes a weighted 0-100 health score and risk factors
// from a canonical project record.
package health

import (
	"math"
	"time"

	"github.com/p-blackswan/project-pulse/internal/config"
	"github.com/p-blackswan/project-pulse/internal/models"
)

// Weights are the six factor weights in percent.
//
// NOTE: the historical weights sum to 90, not 100, and the raw weighted sum
// is used as the score. This is preserved on purpose: renormalizing would
// silently change the meaning of every health score ever produced.
type Weights struct {
	Activity      int
	Commits       int
	PRs           int
	Issues        int
	Documentation int
	PRD           int
}

// DefaultWeights returns the historical factor weights.
func DefaultWeights() Weights {
	return Weights{
		Activity:      25,
		Commits:       20,
		PRs:           15,
		Issues:        10,
		Documentation: 10,
		PRD:           10,
	}
}

// DocStatus is the tri-state condition of a documentation artifact.
type DocStatus string

const (
	DocPresent  DocStatus = "present"
	DocOutdated DocStatus = "outdated"
	DocMissing  DocStatus = "missing"
)

// Scorer derives health assessments. It is stateless apart from its weights
// and clock, so one instance serves any number of concurrent calls.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// NewScorer creates a scorer with the default weights, optionally overridden
// by a tuning file. A zero tuning weight keeps the default.
func NewScorer(tuning *config.Tuning) *Scorer {
	w := DefaultWeights()
	if tuning != nil {
		applyOverride(&w.Activity, tuning.Weights.Activity)
		applyOverride(&w.Commits, tuning.Weights.Commits)
		applyOverride(&w.PRs, tuning.Weights.PRs)
		applyOverride(&w.Issues, tuning.Weights.Issues)
		applyOverride(&w.Documentation, tuning.Weights.Documentation)
		applyOverride(&w.PRD, tuning.Weights.PRD)
	}
	return &Scorer{weights: w, now: time.Now}
}

func applyOverride(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// Score computes the weighted health assessment for a record. The record is
// not modified; callers attach the result themselves.
func (s *Scorer) Score(rec *models.CanonicalProjectRecord) *models.HealthAssessment {
	prd := docStatus(rec.HasPRD)
	taskList := docStatus(rec.HasTaskList)

	factors := models.FactorBreakdown{
		Activity:      activityScore(rec.LastActivity, s.now()),
		Commits:       commitScore(rec.TotalCommits),
		PRs:           prScore(rec.PRs),
		Issues:        issueScore(rec.Issues),
		Documentation: documentationScore(prd, taskList),
		PRD:           prdScore(prd),
	}

	weighted := factors.Activity*s.weights.Activity +
		factors.Commits*s.weights.Commits +
		factors.PRs*s.weights.PRs +
		factors.Issues*s.weights.Issues +
		factors.Documentation*s.weights.Documentation +
		factors.PRD*s.weights.PRD

	score := int(math.Round(float64(weighted) / 100.0))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &models.HealthAssessment{
		Score:       score,
		Status:      Classify(score),
		RiskFactors: s.riskFactors(rec, prd, taskList, score),
		Factors:     factors,
	}
}

// Classify maps a score to its status bucket. Boundaries are inclusive:
// 80 is excellent, 79 is good.
func Classify(score int) models.HealthStatus {
	switch {
	case score >= 80:
		return models.HealthExcellent
	case score >= 60:
		return models.HealthGood
	case score >= 40:
		return models.HealthFair
	case score >= 20:
		return models.HealthPoor
	default:
		return models.HealthCritical
	}
}

func docStatus(present bool) DocStatus {
	if present {
		return DocPresent
	}
	return DocMissing
}

// activityScore normalizes recency: the fresher the last activity, the higher.
func activityScore(last *time.Time, now time.Time) int {
	if last == nil {
		return 0
	}
	days := int(now.Sub(*last).Hours() / 24)
	switch {
	case days <= 7:
		return 100
	case days <= 30:
		return 75
	case days <= 90:
		return 50
	case days <= 180:
		return 25
	default:
		return 0
	}
}

func commitScore(commits int) int {
	switch {
	case commits >= 50:
		return 100
	case commits >= 25:
		return 80
	case commits >= 10:
		return 60
	case commits >= 5:
		return 40
	case commits >= 1:
		return 20
	default:
		return 0
	}
}

func prScore(prs int) int {
	switch {
	case prs >= 10:
		return 100
	case prs >= 5:
		return 75
	case prs >= 2:
		return 50
	case prs >= 1:
		return 25
	default:
		return 0
	}
}

func issueScore(issues int) int {
	switch {
	case issues >= 10:
		return 100
	case issues >= 5:
		return 75
	case issues >= 2:
		return 50
	case issues >= 1:
		return 25
	default:
		return 0
	}
}

// documentationScore splits the factor across the two artifacts: 50 points
// each when present, 25 when outdated, 0 when missing.
func documentationScore(prd, taskList DocStatus) int {
	return docHalf(prd) + docHalf(taskList)
}

func docHalf(s DocStatus) int {
	switch s {
	case DocPresent:
		return 50
	case DocOutdated:
		return 25
	default:
		return 0
	}
}

// prdScore scores the PRD on its own: 100 present, 60 outdated, 0 missing.
func prdScore(s DocStatus) int {
	switch s {
	case DocPresent:
		return 100
	case DocOutdated:
		return 60
	default:
		return 0
	}
}

// Risk factor tags.
const (
	RiskNoRecentActivity = "no_recent_activity"
	RiskPRDMissing       = "prd_missing_or_outdated"
	RiskTaskListMissing  = "task_list_missing_or_outdated"
	RiskZeroVelocity     = "zero_velocity"
	RiskCriticalScore    = "critical_health_score"
)

func (s *Scorer) riskFactors(rec *models.CanonicalProjectRecord, prd, taskList DocStatus, score int) []string {
	var risks []string

	if rec.LastActivity == nil || s.now().Sub(*rec.LastActivity) > 30*24*time.Hour {
		risks = append(risks, RiskNoRecentActivity)
	}
	if prd != DocPresent {
		risks = append(risks, RiskPRDMissing)
	}
	if taskList != DocPresent {
		risks = append(risks, RiskTaskListMissing)
	}
	if rec.Analytics != nil && rec.Analytics.Velocity == 0 {
		risks = append(risks, RiskZeroVelocity)
	}
	if score < 30 {
		risks = append(risks, RiskCriticalScore)
	}
	return risks
}
