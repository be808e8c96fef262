package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/estimator"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/repository/memory"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.AddInstallation(domain.Installation{
		ID: 1, OwnerID: 1, Name: "roof", Longitude: 8.5, Latitude: 47.4,
		Panels: []domain.Panel{{ID: "p1", PeakPowerKWp: 4, Slope: 30, SystemLoss: 14}},
	}))
	svcs := service.New(store, estimator.New(zerolog.Nop(), time.Second))
	app := fiber.New()
	Register(app, svcs, zerolog.Nop())
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

const twoRows = `{"rows":[
	{"from":"2022-05-01T10:00:00Z","to":"2022-05-01T11:00:00Z","energy":1.5},
	{"from":"2022-05-01T11:00:00Z","to":"2022-05-01T12:00:00Z","energy":2.0}
]}`

func TestImportEndpoint(t *testing.T) {
	app := newApp(t)

	status, body := do(t, app, fiber.MethodPost, "/installations/1/import-production-data", twoRows)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, 2.0, body["imported"])
	assert.Equal(t, 2.0, body["without_estimate"])
}

func TestImportEndpoint_InvalidRow(t *testing.T) {
	app := newApp(t)
	payload := `{"rows":[{"from":"2022-05-01T11:00:00Z","to":"2022-05-01T10:00:00Z","energy":1}]}`

	status, body := do(t, app, fiber.MethodPost, "/installations/1/import-production-data", payload)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, 0.0, body["row"])
	assert.Equal(t, "to", body["field"])
}

func TestImportEndpoint_UnknownInstallation(t *testing.T) {
	status, _ := do(t, newApp(t), fiber.MethodPost, "/installations/9/import-production-data", twoRows)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestImportEndpoint_EmptyBatch(t *testing.T) {
	status, body := do(t, newApp(t), fiber.MethodPost, "/installations/1/import-production-data", `{"rows":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "empty")
}

func TestWindowEndpoints_RequireQuery(t *testing.T) {
	app := newApp(t)
	for _, target := range []string{
		"/installations/1/recalculate-estimated-production?to=2022-06-01T00:00:00Z",
		"/installations/1/recalculate-monthly-stats?from=2022-05-01T00:00:00Z",
		"/installations/1/recalculate-monthly-stats?from=yesterday&to=2022-06-01T00:00:00Z",
	} {
		status, _ := do(t, app, fiber.MethodPost, target, "")
		assert.Equal(t, fiber.StatusBadRequest, status, target)
	}
	status, _ := do(t, app, fiber.MethodDelete, "/installations/x/production?from=2022-05-01T00:00:00Z&to=2022-06-01T00:00:00Z", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRecalculateAndStatsEndpoints(t *testing.T) {
	app := newApp(t)
	status, _ := do(t, app, fiber.MethodPost, "/installations/1/import-production-data", twoRows)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := do(t, app, fiber.MethodPost, "/installations/1/recalculate-estimated-production?from=2022-05-01T00:00:00Z&to=2022-06-01T00:00:00Z", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2.0, body["skipped"])

	status, body = do(t, app, fiber.MethodPost, "/installations/1/recalculate-monthly-stats?from=2022-05-01T00:00:00Z&to=2022-06-01T00:00:00Z", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1.0, body["months"])

	req := httptest.NewRequest(fiber.MethodGet, "/installations/1/monthly-stats?from_year=2022", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats []domain.MonthlyStatistic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Len(t, stats, 1)
	assert.Equal(t, 5, stats[0].Month)
	assert.InDelta(t, 3.5, stats[0].MeasuredKWh, 1e-12)

	status, body = do(t, app, fiber.MethodDelete, "/installations/1/production?from=2022-05-01T00:00:00Z&to=2022-06-01T00:00:00Z", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2.0, body["deleted"])
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	resp, err := newApp(t).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
