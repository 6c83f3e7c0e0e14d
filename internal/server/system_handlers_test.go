package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/scheduler"
	testutil "github.com/aristath/pairlab/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func quietLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestServer(t *testing.T, sched *scheduler.Scheduler) *Server {
	t.Helper()
	history, cleanupHistory := testutil.NewTestDB(t, database.NameHistory)
	t.Cleanup(cleanupHistory)
	results, cleanupResults := testutil.NewTestDB(t, database.NameResults)
	t.Cleanup(cleanupResults)

	return New(Config{
		Log:       quietLogger(),
		DataDir:   t.TempDir(),
		Port:      0,
		DevMode:   true,
		HistoryDB: history,
		ResultsDB: results,
		Scheduler: sched,
	})
}

func get(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "pairlab", response["service"])
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestServer_PriceRoutesMounted(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/api/prices/symbols")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ResearchRoutesRequireService(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/api/research/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/api/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.GoVersion)
	assert.Greater(t, response.Goroutines, 0)
	assert.GreaterOrEqual(t, response.UptimeSeconds, 0.0)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "GET", "/api/system/database-stats")
	require.Equal(t, http.StatusOK, w.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Databases, 2)
	assert.Equal(t, database.NameHistory, response.Databases[0].Name)
	assert.Equal(t, database.NameResults, response.Databases[1].Name)
	for _, db := range response.Databases {
		assert.True(t, db.Healthy, db.Error)
		assert.Greater(t, db.SizeMB, 0.0)
	}
}

func TestSystemHandlers_Jobs(t *testing.T) {
	sched := scheduler.New(quietLogger())
	ok := &stubJob{name: "ok"}
	failing := &stubJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, sched.AddJob("@daily", ok))
	require.NoError(t, sched.AddJob("@daily", failing))
	s := newTestServer(t, sched)

	w := get(t, s, "GET", "/api/system/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	var response JobsStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.TotalJobs)
	assert.Equal(t, "failing", response.Jobs[0].Name)
	assert.Equal(t, "ok", response.Jobs[1].Name)

	tests := []struct {
		name           string
		job            string
		expectedStatus int
	}{
		{name: "successful job", job: "ok", expectedStatus: http.StatusOK},
		{name: "failing job", job: "failing", expectedStatus: http.StatusInternalServerError},
		{name: "unknown job", job: "missing", expectedStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, "POST", "/api/system/jobs/"+tt.job)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
}

func TestSystemHandlers_TriggerWithoutScheduler(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "POST", "/api/system/jobs/anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, s, "GET", "/api/system/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	var response JobsStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 0, response.TotalJobs)
}
