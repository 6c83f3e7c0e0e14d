package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/research"
	testutil "github.com/aristath/pairlab/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanup := testutil.NewTestDB(t, database.NameResults)
	t.Cleanup(cleanup)
	repo := ledger.NewRepository(db.Conn(), logger)

	rng := rand.New(rand.NewSource(2024))
	x := testutil.RandomWalk(rng, 500, 100, 1)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2.0*v + rng.NormFloat64()*0.1
	}
	source := testutil.NewMockSeriesSource(testutil.Series("AAA", x), testutil.Series("BBB", y))

	cfg := research.Config{Significance: 0.05, MaxCandidates: 5, Backtest: backtest.DefaultConfig()}
	scanner := pairs.NewScanner(pairs.Config{MinObservations: 100, Workers: 2}, logger)
	service, err := research.NewService(cfg, source, scanner, repo, logger)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(service, repo, logger).RegisterRoutes(r)
	})
	return router
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response["metadata"])
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestResearchFlow(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "GET", "/api/research/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, "POST", "/api/research/run")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decodeData(t, w)
	assert.Equal(t, "completed", report["outcome"])
	runID, ok := report["run_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, runID)

	w = serve(router, "GET", "/api/research/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, runID, decodeData(t, w)["run_id"])

	w = serve(router, "GET", "/api/research/runs?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeData(t, w)["count"])

	w = serve(router, "GET", "/api/research/runs/"+runID)
	require.Equal(t, http.StatusOK, w.Code)
	run := decodeData(t, w)
	assert.Equal(t, "AAA", run["symbol_a"])
	assert.Equal(t, "BBB", run["symbol_b"])
	assert.NotNil(t, run["summary"])

	w = serve(router, "GET", "/api/research/runs/"+runID+"/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "AAA_BBB_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Trades")
}

func TestGetRun_NotFound(t *testing.T) {
	router := setupRouter(t)

	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/api/research/runs/missing").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/api/research/runs/missing/export.xlsx").Code)
}

func TestListRuns_Empty(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "GET", "/api/research/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeData(t, w)["count"])
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, nil, logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
