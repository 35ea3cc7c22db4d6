package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/wildfire-watch-service/internal/adapter/http"
	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/kvstore"
	"github.com/couchcryptid/wildfire-watch-service/internal/monitor"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
	"github.com/couchcryptid/wildfire-watch-service/internal/oracle"
	"github.com/couchcryptid/wildfire-watch-service/internal/seed"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type testServer struct {
	srv *httpadapter.Server
	reg *collection.Registry
}

func newTestServer(t *testing.T, readyErr error) *testServer {
	t.Helper()
	now := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	seeds, err := seed.Load(now)
	require.NoError(t, err)

	store := kvstore.NewAdapter(kvstore.NewMemoryBackend(), logger, metrics)
	reg := collection.NewRegistry(store, seeds, logger, metrics, collection.WithLatency(0))
	o := oracle.NewSimulated(logger, metrics, oracle.WithSeed(7), oracle.WithLatency(0))
	svc := monitor.New(reg, o, logger, metrics)

	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Collections: reg,
		Monitor:     svc,
		Oracle:      o,
		Ready:       &mockReadiness{err: readyErr},
	}, logger)
	return &testServer{srv: srv, reg: reg}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	ts := newTestServer(t, errors.New("ping wwai: connection refused"))
	rec := ts.do(t, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "ping wwai: connection refused", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListEntities_SortAndLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/entities/MonitoredZone?sort=-risk_score&limit=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	zones := decode[[]domain.Record](t, rec)
	require.Len(t, zones, 2)
	assert.Equal(t, "zone_okanagan", zones[0].ID())
	assert.Equal(t, "zone_wood_buffalo", zones[1].ID())
}

func TestListEntities_EmptyCollection(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/entities/AirQuality", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListEntities_BadLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/entities/MonitoredZone?limit=ten", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpadapter.ErrorResponse](t, rec)
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, http.StatusBadRequest, body.Code)
}

func TestUnknownCollectionReturns404(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/entities/Volcano", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[httpadapter.ErrorResponse](t, rec)
	assert.Contains(t, body.Message, "unknown collection")
}

func TestCreateEntity(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/entities/FireDepartment", map[string]any{
		"name":     "Canmore Fire-Rescue",
		"province": "AB",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Record](t, rec)
	assert.NotEmpty(t, created.ID())
	assert.Equal(t, "Canmore Fire-Rescue", created.String("name"))
	assert.Equal(t, "2025-08-02T09:00:00.000Z", created.String(domain.FieldCreatedDate))
}

func TestCreateZoneAppliesDefaults(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/entities/MonitoredZone", map[string]any{
		"name":      "Kananaskis Country, AB",
		"latitude":  50.9,
		"longitude": -115.1,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	zone := decode[domain.Record](t, rec)
	assert.Equal(t, "active", zone.String("status"))
	assert.Equal(t, "unknown", zone.String("risk_level"))
}

func TestCreateEntity_MalformedBody(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/entities/FireDepartment", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpadapter.ErrorResponse](t, rec)
	assert.Contains(t, body.Message, "invalid request body")
}

func TestUpdateEntity(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPatch, "/api/entities/MonitoredZone/zone_jasper", map[string]any{"status": "paused"})

	require.Equal(t, http.StatusOK, rec.Code)
	zone := decode[domain.Record](t, rec)
	assert.Equal(t, "paused", zone.String("status"))
	assert.Equal(t, "Jasper National Park, AB", zone.String("name"))
}

func TestUpdateEntity_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPatch, "/api/entities/MonitoredZone/zone_missing", map[string]any{"status": "paused"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[httpadapter.ErrorResponse](t, rec)
	assert.Equal(t, "MonitoredZone: record not found", body.Message)
}

func TestDeleteEntity_Idempotent(t *testing.T) {
	ts := newTestServer(t, nil)
	for range 2 {
		rec := ts.do(t, http.MethodDelete, "/api/entities/FireDepartment/FireDepartment_1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	}
}

func TestAnalyze_Zone(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{
		"prompt": "Analyze wildfire risk for Banff National Park, AB",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[domain.ZoneAnalysis](t, rec)
	assert.GreaterOrEqual(t, res.RiskScore, 25.0)
	assert.LessOrEqual(t, res.RiskScore, 95.0)
	assert.Equal(t, domain.ClassifyRisk(res.RiskScore), res.RiskLevel)
}

func TestAnalyze_PredictionsFromSchema(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{
		"prompt":               "Where next?",
		"response_json_schema": map[string]any{"properties": map[string]any{"predictions": map[string]any{"type": "array"}}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string][]domain.Prediction](t, rec)
	assert.Len(t, res["predictions"], oracle.PredictionCount)
}

func TestAnalyze_RequiresPrompt(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/ai/analyze", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeZonesJob(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/jobs/analyze-zones", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[monitor.JobResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, 6, res.ZonesAnalyzed)

	zones, err := ts.reg.MustGet(domain.CollectionZones).List(context.Background(), collection.ListOptions{Limit: -1})
	require.NoError(t, err)
	for _, z := range zones {
		assert.Equal(t, "2025-08-02T09:00:00.000Z", z.String("last_analyzed"), z.ID())
	}
}

func TestAnalyzeZone(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/zones/zone_banff/analyze", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	zone := decode[domain.Record](t, rec)
	assert.Equal(t, "zone_banff", zone.ID())
	assert.Equal(t, "2025-08-02T09:00:00.000Z", zone.String("last_analyzed"))

	rec = ts.do(t, http.MethodPost, "/api/zones/zone_missing/analyze", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictions(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/predictions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string][]domain.Prediction](t, rec)
	require.Len(t, res["predictions"], oracle.PredictionCount)
	for _, p := range res["predictions"] {
		assert.GreaterOrEqual(t, p.Latitude, oracle.MinLatitude)
		assert.LessOrEqual(t, p.Latitude, oracle.MaxLatitude)
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[monitor.Summary](t, rec)
	assert.Equal(t, 6, sum.TotalZones)
	assert.Len(t, sum.TopZones, 4)
	assert.Len(t, sum.RecentAlerts, 3)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/nothing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[httpadapter.ErrorResponse](t, rec).Code)
}

func TestWrongMethodReturns405(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPut, "/api/entities/MonitoredZone/zone_banff", map[string]any{})

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, decode[httpadapter.ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/dashboard", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
