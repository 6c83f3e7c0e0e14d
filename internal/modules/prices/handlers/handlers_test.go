package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/prices"
	testutil "github.com/aristath/pairlab/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,10,11,9,10.5,10.4,1000
2024-01-03,10.5,12,10,11.5,11.4,1200
2024-01-04,11.5,12,11,11.8,11.7,900
`

func setupRouter(t *testing.T) (*chi.Mux, *prices.HistoryDB) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	db, cleanup := testutil.NewTestDB(t, database.NameHistory)
	t.Cleanup(cleanup)

	historyDB := prices.NewHistoryDB(db.Conn(), logger)
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(historyDB, logger).RegisterRoutes(r)
	})
	return router, historyDB
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response["metadata"])
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestHandleImportCSV(t *testing.T) {
	router, historyDB := setupRouter(t)

	req := httptest.NewRequest("POST", "/api/prices/import/abc", strings.NewReader(sampleCSV))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)
	assert.Equal(t, "ABC", data["symbol"])
	assert.Equal(t, float64(3), data["imported"])

	bars, err := historyDB.GetDailyPrices(req.Context(), "ABC")
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 11.7, *bars[2].AdjustedClose)
}

func TestHandleImportCSV_BadInput(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest("POST", "/api/prices/import/ABC", strings.NewReader("Open,Close\n1,2\n"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetDailyPrices(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/prices/import/ABC", strings.NewReader(sampleCSV)))
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name          string
		path          string
		expectedCount float64
	}{
		{name: "all bars", path: "/api/prices/daily/ABC", expectedCount: 3},
		{name: "with limit", path: "/api/prices/daily/ABC?limit=2", expectedCount: 2},
		{name: "invalid limit ignored", path: "/api/prices/daily/ABC?limit=abc", expectedCount: 3},
		{name: "unknown symbol", path: "/api/prices/daily/XYZ", expectedCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			data := decode(t, w)
			assert.Equal(t, tt.expectedCount, data["count"])
		})
	}
}

func TestHandleGetSymbols(t *testing.T) {
	router, _ := setupRouter(t)

	for _, symbol := range []string{"BBB", "AAA"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/prices/import/"+symbol, strings.NewReader(sampleCSV)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/prices/symbols", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.Equal(t, float64(2), data["count"])
	assert.Equal(t, []interface{}{"AAA", "BBB"}, data["symbols"])
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
