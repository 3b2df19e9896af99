// Package api exposes the reconciliation service over HTTP: project queries,
// reconciliation triggers, inconsistency reports and cache statistics.
package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/p-blackswan/project-pulse/internal/metrics"
	"github.com/p-blackswan/project-pulse/internal/requestid"
	"github.com/p-blackswan/project-pulse/internal/service"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	Auth        AuthConfig
	CORSOrigins string
}

// Server is the API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, svc *service.Service, ingest Ingest, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:      app,
		handlers: NewHandlers(svc, ingest, logger),
		logger:   logger.With().Str("component", "api.server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger)
	s.setupRoutes(m)
	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	// Request ID
	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, DELETE, OPTIONS",
		}))
	}

	s.app.Use(NewAuthMiddleware(cfg.Auth, logger))

	// Request log, probes excluded
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}
		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(m *metrics.Metrics) {
	s.app.Get("/healthz", s.handlers.Liveness)

	if m != nil {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	v1 := s.app.Group("/api/v1")

	v1.Get("/projects", s.handlers.QueryProjects)
	v1.Get("/projects/:name", s.handlers.GetProject)
	v1.Post("/projects/:name/refresh", s.handlers.RefreshProject)
	v1.Post("/reconcile", s.handlers.Reconcile)
	v1.Post("/reconcile/batch", s.handlers.ReconcileBatch)

	v1.Post("/planning/:name", s.handlers.IngestPlanning)
	v1.Post("/activity", s.handlers.IngestActivity)

	v1.Get("/reports", s.handlers.ListReports)
	v1.Get("/reports/:name", s.handlers.GetReports)
	v1.Delete("/reports", requireRole(RoleAdmin), s.handlers.ClearReports)
	v1.Delete("/reports/:name", requireRole(RoleAdmin), s.handlers.ClearProjectReports)

	v1.Get("/cache/stats", s.handlers.CacheStats)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		return problemResponse(c, code, "internal_error", "Internal Server Error", err.Error())
	}
}

// problemResponse writes an RFC 7807 style error body.
func problemResponse(c *fiber.Ctx, status int, code, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":   "about:blank",
		"code":   code,
		"title":  title,
		"detail": detail,
		"status": status,
	})
}
