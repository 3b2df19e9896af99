package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	pulseerr "github.com/p-blackswan/project-pulse/internal/errors"
	"github.com/p-blackswan/project-pulse/internal/models"
	"github.com/p-blackswan/project-pulse/internal/query"
	"github.com/p-blackswan/project-pulse/internal/service"
)

// Handlers implements the API endpoints.
type Handlers struct {
	svc    *service.Service
	ingest Ingest
	logger zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(svc *service.Service, ingest Ingest, logger zerolog.Logger) *Handlers {
	return &Handlers{
		svc:    svc,
		ingest: ingest,
		logger: logger.With().Str("component", "api.handlers").Logger(),
	}
}

// Liveness responds to /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// QueryProjects handles GET /api/v1/projects.
func (h *Handlers) QueryProjects(c *fiber.Ctx) error {
	f := query.Filters{
		Search:         c.Query("search"),
		Category:       c.Query("category"),
		Status:         c.Query("status"),
		HealthStatus:   c.Query("health_status"),
		ActivityStatus: c.Query("activity_status"),
	}
	if v := c.QueryInt("min_completion", -1); v >= 0 {
		f.MinCompletion = &v
	}
	if v := c.QueryInt("max_completion", -1); v >= 0 {
		f.MaxCompletion = &v
	}
	if v := c.QueryInt("min_velocity", -1); v >= 0 {
		f.MinVelocity = &v
	}
	if v := c.QueryInt("max_velocity", -1); v >= 0 {
		f.MaxVelocity = &v
	}

	page := query.Page{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 20),
	}

	res := h.svc.QueryProjects(f, query.SortKey(c.Query("sort", string(query.SortName))), page)
	return c.JSON(res)
}

// GetProject handles GET /api/v1/projects/:name.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	name := c.Params("name")
	rec, err := h.svc.GetProject(name)
	if err != nil {
		if errors.Is(err, pulseerr.ErrNotFound) {
			return problemResponse(c, fiber.StatusNotFound,
				"not_found", "Not Found", "no canonical record for project "+name)
		}
		return err
	}
	return c.JSON(rec)
}

// reconcileRequest is the POST /api/v1/reconcile body.
type reconcileRequest struct {
	Project string           `json:"project"`
	Sources models.SourceSet `json:"sources"`
}

// Reconcile handles POST /api/v1/reconcile.
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	var req reconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", err.Error())
	}
	if req.Project == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project", "Bad Request", "project name is required")
	}

	rec, err := h.svc.ReconcileProject(c.Context(), req.Project, req.Sources)
	if err != nil {
		h.logger.Error().Str("project", req.Project).Err(err).Msg("reconciliation failed")
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"reconciliation_failed", "Unprocessable Entity", err.Error())
	}
	return c.JSON(rec)
}

// batchRequest is the POST /api/v1/reconcile/batch body.
type batchRequest struct {
	Projects map[string]models.SourceSet `json:"projects"`
}

// ReconcileBatch handles POST /api/v1/reconcile/batch.
func (h *Handlers) ReconcileBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", err.Error())
	}
	if len(req.Projects) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"empty_batch", "Bad Request", "at least one project is required")
	}

	res := h.svc.ReconcileBatch(c.Context(), req.Projects)
	return c.JSON(res)
}

// ListReports handles GET /api/v1/reports.
func (h *Handlers) ListReports(c *fiber.Ctx) error {
	return c.JSON(h.svc.AllReports())
}

// GetReports handles GET /api/v1/reports/:name.
func (h *Handlers) GetReports(c *fiber.Ctx) error {
	reports := h.svc.Reports(c.Params("name"))
	if reports == nil {
		reports = []models.InconsistencyReport{}
	}
	return c.JSON(reports)
}

// ClearReports handles DELETE /api/v1/reports.
func (h *Handlers) ClearReports(c *fiber.Ctx) error {
	n := h.svc.ClearReports("")
	return c.JSON(fiber.Map{"cleared": n})
}

// ClearProjectReports handles DELETE /api/v1/reports/:name.
func (h *Handlers) ClearProjectReports(c *fiber.Ctx) error {
	n := h.svc.ClearReports(c.Params("name"))
	return c.JSON(fiber.Map{"cleared": n})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handlers) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.svc.CacheStats())
}
