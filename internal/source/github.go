package source

import (
	"context"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/project-pulse/internal/models"
)

// Filenames probed for documentation presence.
const (
	prdPath      = "docs/prd.md"
	taskListPath = "docs/tasks.md"
)

// GitHubProvider maps repository state from the GitHub API to VCS snapshots.
// It is an out-of-core collaborator: failures surface as a nil snapshot plus
// an error for the caller's log, and the engine simply sees "no VCS signal".
type GitHubProvider struct {
	client *github.Client
	owner  string
	logger zerolog.Logger
}

// NewGitHubProvider creates a provider for one repository owner.
func NewGitHubProvider(token, owner string, logger zerolog.Logger) *GitHubProvider {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubProvider{
		client: client,
		owner:  owner,
		logger: logger.With().Str("component", "source.github").Logger(),
	}
}

// FetchVCS builds the VCS snapshot for one repository. The commit count is
// taken from the last 90 days of activity to match the activity-log window.
func (p *GitHubProvider) FetchVCS(ctx context.Context, repo string) (*models.VCSSnapshot, error) {
	repoInfo, _, err := p.client.Repositories.Get(ctx, p.owner, repo)
	if err != nil {
		return nil, err
	}

	snap := &models.VCSSnapshot{}
	fullName := repoInfo.GetFullName()
	snap.Repository = &fullName

	if pushed := repoInfo.GetPushedAt(); !pushed.IsZero() {
		t := pushed.Time
		snap.LastActivity = &t
	}
	issues := repoInfo.GetOpenIssuesCount()
	snap.Issues = &issues

	if commits, err := p.countCommits(ctx, repo); err == nil {
		snap.Commits = &commits
	} else {
		p.logger.Warn().Str("repo", repo).Err(err).Msg("commit count unavailable")
	}

	if prs, err := p.countOpenPRs(ctx, repo); err == nil {
		snap.PRs = &prs
	} else {
		p.logger.Warn().Str("repo", repo).Err(err).Msg("PR count unavailable")
	}

	hasPRD := p.fileExists(ctx, repo, prdPath)
	hasTaskList := p.fileExists(ctx, repo, taskListPath)
	snap.HasPRD = &hasPRD
	snap.HasTaskList = &hasTaskList

	return snap, nil
}

func (p *GitHubProvider) countCommits(ctx context.Context, repo string) (int, error) {
	since := time.Now().AddDate(0, 0, -90)
	total := 0
	opts := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		commits, resp, err := p.client.Repositories.ListCommits(ctx, p.owner, repo, opts)
		if err != nil {
			return 0, err
		}
		total += len(commits)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return total, nil
}

func (p *GitHubProvider) countOpenPRs(ctx context.Context, repo string) (int, error) {
	total := 0
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, p.owner, repo, opts)
		if err != nil {
			return 0, err
		}
		total += len(prs)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return total, nil
}

func (p *GitHubProvider) fileExists(ctx context.Context, repo, path string) bool {
	_, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return false
		}
		p.logger.Debug().Str("repo", repo).Str("path", path).Err(err).Msg("content probe failed")
		return false
	}
	return true
}
