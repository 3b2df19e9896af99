package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/project-pulse/internal/models"
	"github.com/p-blackswan/project-pulse/internal/source"
)

// Ingest holds the collaborator stores fed by upstream systems. Nil members
// disable the corresponding endpoints.
type Ingest struct {
	Feed        *source.PlanningFeed
	ActivityLog *source.ActivityLog
}

// planningIngestRequest is the POST /api/v1/planning/:name body.
type planningIngestRequest struct {
	Snapshot       *models.PlanningSnapshot `json:"snapshot"`
	WorkItems      []models.WorkItem        `json:"work_items,omitempty"`
	Touches        map[string]time.Time     `json:"touches,omitempty"`
	WeeklyVelocity *float64                 `json:"weekly_velocity,omitempty"`
}

// IngestPlanning handles POST /api/v1/planning/:name, replacing the stored
// planning view of a project.
func (h *Handlers) IngestPlanning(c *fiber.Ctx) error {
	if h.ingest.Feed == nil {
		return problemResponse(c, fiber.StatusNotImplemented,
			"no_planning_feed", "Not Implemented", "planning ingestion is not configured")
	}

	var req planningIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", err.Error())
	}

	project := c.Params("name")
	h.ingest.Feed.SetSnapshot(project, req.Snapshot)
	if req.WorkItems != nil {
		h.ingest.Feed.SetWorkItems(project, req.WorkItems)
	}
	for itemID, at := range req.Touches {
		h.ingest.Feed.Touch(project, itemID, at)
	}
	if req.WeeklyVelocity != nil {
		h.ingest.Feed.RecordWeeklyVelocity(project, *req.WeeklyVelocity)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// activityIngestRequest is the POST /api/v1/activity body.
type activityIngestRequest struct {
	Project string `json:"project"`
	Day     string `json:"day"` // YYYY-MM-DD
	Commits int    `json:"commits"`
}

// IngestActivity handles POST /api/v1/activity, appending one day of commit
// counts to the rolling series.
func (h *Handlers) IngestActivity(c *fiber.Ctx) error {
	if h.ingest.ActivityLog == nil {
		return problemResponse(c, fiber.StatusNotImplemented,
			"no_activity_log", "Not Implemented", "activity ingestion is not configured")
	}

	var req activityIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", err.Error())
	}
	if req.Project == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project", "Bad Request", "project name is required")
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_day", "Bad Request", "day must be YYYY-MM-DD")
	}

	h.ingest.ActivityLog.Record(day, req.Project, req.Commits)
	return c.SendStatus(fiber.StatusNoContent)
}

// RefreshProject handles POST /api/v1/projects/:name/refresh, pulling fresh
// snapshots from the configured providers and reconciling.
func (h *Handlers) RefreshProject(c *fiber.Ctx) error {
	name := c.Params("name")
	repo := c.Query("repo")

	rec, err := h.svc.Refresh(c.Context(), name, repo)
	if err != nil {
		h.logger.Error().Str("project", name).Err(err).Msg("refresh failed")
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"reconciliation_failed", "Unprocessable Entity", err.Error())
	}
	return c.JSON(rec)
}
