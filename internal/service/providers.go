package service

import (
	"context"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// VCSProvider fetches the VCS snapshot for a repository. Implementations do
// network I/O; a failure means "no VCS signal", not a failed reconciliation.
type VCSProvider interface {
	FetchVCS(ctx context.Context, repo string) (*models.VCSSnapshot, error)
}

// PlanningProvider supplies the current planning snapshot for a project,
// or nil when the planning tool has no signal.
type PlanningProvider interface {
	Snapshot(project string) *models.PlanningSnapshot
}

// ActivityProvider derives the activity snapshot for a project from the
// rolling commit-activity series, or nil when there is none.
type ActivityProvider interface {
	Snapshot(project string) *models.ActivitySnapshot
}

// UseVCS attaches an optional VCS provider for Refresh.
func (s *Service) UseVCS(p VCSProvider) { s.vcs = p }

// UsePlanning attaches an optional planning provider for Refresh.
func (s *Service) UsePlanning(p PlanningProvider) { s.planning = p }

// UseActivity attaches an optional activity provider for Refresh.
func (s *Service) UseActivity(p ActivityProvider) { s.activity = p }

// Refresh gathers fresh snapshots from the configured providers and
// reconciles the project. Providers that fail or are absent contribute a nil
// snapshot; the merge proceeds with whatever signals exist, seeded by the
// previous canonical record.
func (s *Service) Refresh(ctx context.Context, name, repo string) (*models.CanonicalProjectRecord, error) {
	var sources models.SourceSet

	if s.vcs != nil && repo != "" {
		snap, err := s.vcs.FetchVCS(ctx, repo)
		if err != nil {
			s.logger.Warn().
				Str("project", name).
				Str("repo", repo).
				Err(err).
				Msg("VCS source unavailable, reconciling without it")
		} else {
			sources.VCS = snap
		}
	}
	if s.planning != nil {
		sources.Planning = s.planning.Snapshot(name)
	}
	if s.activity != nil {
		sources.Activity = s.activity.Snapshot(name)
	}

	return s.ReconcileProject(ctx, name, sources)
}
