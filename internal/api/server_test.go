package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/project-pulse/internal/analytics"
	"github.com/p-blackswan/project-pulse/internal/config"
	"github.com/p-blackswan/project-pulse/internal/health"
	"github.com/p-blackswan/project-pulse/internal/models"
	"github.com/p-blackswan/project-pulse/internal/reconcile"
	"github.com/p-blackswan/project-pulse/internal/service"
	"github.com/p-blackswan/project-pulse/internal/source"
)

func newTestServer(t *testing.T, auth AuthConfig) (*Server, *service.Service, Ingest) {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{
		CacheTTL:        time.Minute,
		CacheMaxSize:    32,
		CacheSweepEvery: time.Minute,
		PageLimitMin:    1,
		PageLimitMax:    100,
	}
	svc := service.New(cfg, reconcile.NewEngine(nil, logger),
		health.NewScorer(nil), analytics.NewEngine(), nil, nil, logger)

	ingest := Ingest{
		Feed:        source.NewPlanningFeed(),
		ActivityLog: source.NewActivityLog(90),
	}
	svc.UsePlanning(ingest.Feed)
	svc.UseActivity(ingest.ActivityLog)

	srv := NewServer(ServerConfig{Auth: auth}, svc, ingest, nil, logger)
	return srv, svc, ingest
}

type testResponse struct {
	Code int
	Body []byte
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) testResponse {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return testResponse{Code: resp.StatusCode, Body: b}
}

func intp(v int) *int { return &v }

func TestLiveness(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})
	rec := doJSON(t, srv, "GET", "/healthz", nil)
	assert.Equal(t, 200, rec.Code)
}

func TestReconcileAndGetProject(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})

	rec := doJSON(t, srv, "POST", "/api/v1/reconcile", map[string]any{
		"project": "alpha",
		"sources": map[string]any{
			"planning": map[string]any{
				"progress":          70,
				"stories_total":     10,
				"stories_completed": 7,
			},
		},
	})
	require.Equal(t, 200, rec.Code)

	var got models.CanonicalProjectRecord
	require.NoError(t, json.Unmarshal(rec.Body, &got))
	assert.Equal(t, "alpha", got.Name)
	assert.Equal(t, 70, got.Progress)
	require.NotNil(t, got.Health)
	require.NotNil(t, got.Analytics)

	rec = doJSON(t, srv, "GET", "/api/v1/projects/alpha", nil)
	assert.Equal(t, 200, rec.Code)

	rec = doJSON(t, srv, "GET", "/api/v1/projects/ghost", nil)
	assert.Equal(t, 404, rec.Code)
}

func TestReconcileRejectsMissingProject(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})
	rec := doJSON(t, srv, "POST", "/api/v1/reconcile", map[string]any{"sources": map[string]any{}})
	assert.Equal(t, 400, rec.Code)
}

func TestQueryProjectsPagination(t *testing.T) {
	srv, svc, _ := newTestServer(t, AuthConfig{Mode: "none"})

	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := svc.ReconcileProject(context.Background(), name, models.SourceSet{
			Planning: &models.PlanningSnapshot{Progress: intp(50)},
		})
		require.NoError(t, err)
	}

	rec := doJSON(t, srv, "GET", "/api/v1/projects?limit=2&page=2&sort=name", nil)
	require.Equal(t, 200, rec.Code)

	var res models.PagedResult
	require.NoError(t, json.Unmarshal(rec.Body, &res))
	require.Len(t, res.Data, 1)
	assert.Equal(t, "gamma", res.Data[0].Name)
	assert.Equal(t, 3, res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasPrev)
	assert.False(t, res.Pagination.HasNext)
}

func TestBatchReconcilePartialSuccess(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})

	rec := doJSON(t, srv, "POST", "/api/v1/reconcile/batch", map[string]any{
		"projects": map[string]any{
			"alpha": map[string]any{"planning": map[string]any{"progress": 30}},
			"":      map[string]any{},
		},
	})
	require.Equal(t, 200, rec.Code)

	var res models.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body, &res))
	assert.Len(t, res.Records, 1)
	assert.Len(t, res.Failed, 1)
}

func TestIngestAndRefreshFlow(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})

	rec := doJSON(t, srv, "POST", "/api/v1/planning/alpha", map[string]any{
		"snapshot": map[string]any{"progress": 60, "status": "in-progress"},
	})
	require.Equal(t, 204, rec.Code)

	day := time.Now().UTC().Format("2006-01-02")
	rec = doJSON(t, srv, "POST", "/api/v1/activity", map[string]any{
		"project": "alpha", "day": day, "commits": 4,
	})
	require.Equal(t, 204, rec.Code)

	rec = doJSON(t, srv, "POST", "/api/v1/projects/alpha/refresh", nil)
	require.Equal(t, 200, rec.Code)

	var got models.CanonicalProjectRecord
	require.NoError(t, json.Unmarshal(rec.Body, &got))
	assert.Equal(t, 60, got.Progress)
	assert.Equal(t, "in-progress", got.Status)
	assert.Equal(t, 4, got.TotalCommits)
}

func TestIngestActivityValidation(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})

	rec := doJSON(t, srv, "POST", "/api/v1/activity", map[string]any{
		"project": "alpha", "day": "yesterday", "commits": 4,
	})
	assert.Equal(t, 400, rec.Code)

	rec = doJSON(t, srv, "POST", "/api/v1/activity", map[string]any{
		"day": "2026-08-01", "commits": 4,
	})
	assert.Equal(t, 400, rec.Code)
}

func TestReportsLifecycle(t *testing.T) {
	srv, svc, _ := newTestServer(t, AuthConfig{Mode: "none"})

	// Cached and planning disagree on progress beyond the tolerance.
	_, err := svc.ReconcileProject(context.Background(), "alpha", models.SourceSet{
		Cached:   &models.CanonicalProjectRecord{Name: "alpha", Progress: 10},
		Planning: &models.PlanningSnapshot{Progress: intp(90)},
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, "GET", "/api/v1/reports/alpha", nil)
	require.Equal(t, 200, rec.Code)
	var reports []models.InconsistencyReport
	require.NoError(t, json.Unmarshal(rec.Body, &reports))
	assert.Len(t, reports, 1)

	rec = doJSON(t, srv, "DELETE", "/api/v1/reports/alpha", nil)
	require.Equal(t, 200, rec.Code)

	rec = doJSON(t, srv, "GET", "/api/v1/reports/alpha", nil)
	require.Equal(t, 200, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body, &reports))
	assert.Empty(t, reports)
}

func TestCacheStatsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "none"})

	rec := doJSON(t, srv, "GET", "/api/v1/cache/stats", nil)
	require.Equal(t, 200, rec.Code)

	var stats map[string]models.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body, &stats))
	assert.Contains(t, stats, "record")
	assert.Contains(t, stats, "query")
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "api-key", APIKey: "sekret"})

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// Probes stay open.
	req = httptest.NewRequest("GET", "/healthz", nil)
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestJWTAuthRoles(t *testing.T) {
	secret := "topsecret"
	srv, _, _ := newTestServer(t, AuthConfig{Mode: "jwt", JWTSecret: secret})

	sign := func(role string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"role": role,
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	// Read access with any valid token.
	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+sign("readonly"))
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// Clearing reports needs admin.
	req = httptest.NewRequest("DELETE", "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+sign("readonly"))
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+sign("admin"))
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// Garbage token.
	req = httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
