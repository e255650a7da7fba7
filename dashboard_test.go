package raceiq

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justapengu.in/raceiq/internal/timing"
)

// newTestDashboard serves the output of a full pipeline run over raceCSV.
func newTestDashboard(t *testing.T) (*Dashboard, string) {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "race.csv")
	output := filepath.Join(dir, "processed.csv")

	writeFile(t, input, raceCSV())

	_, err := NewPipeline(DefaultConfig(), testLogger()).Run(RunOptions{Input: input, Output: output, WriteSummary: true})
	require.NoError(t, err)

	d, err := NewDashboard(output, DefaultConfig(), testLogger())
	require.NoError(t, err)
	require.NoError(t, d.Reload())

	return d, output
}

func get(t *testing.T, handler http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

	return w
}

func TestDashboardPages(t *testing.T) {
	d, _ := newTestDashboard(t)
	router := d.Router()

	for _, tc := range []struct {
		url      string
		status   int
		contains []string
	}{
		{url: "/", status: http.StatusOK, contains: raceDrivers},
		{url: "/drivers/Lewis%20Hamilton", status: http.StatusOK, contains: []string{"Lewis Hamilton", "Lap 6", "/drivers/Lewis%20Hamilton/charts"}},
		{url: "/drivers/Lewis%20Hamilton/charts", status: http.StatusOK, contains: []string{"echarts", "Sector times", "Predicted vs actual"}},
		{url: "/drivers/Nobody", status: http.StatusNotFound},
		{url: "/compare", status: http.StatusOK, contains: []string{"Pick one or more drivers"}},
		{url: "/compare?driver=Max+Verstappen&driver=Lewis+Hamilton&from=2&to=8", status: http.StatusOK, contains: []string{"Max Verstappen", "Lewis Hamilton", "/compare/export.csv?"}},
		{url: "/compare?driver=Nobody", status: http.StatusNotFound},
		{url: "/compare?driver=Max+Verstappen&from=x", status: http.StatusBadRequest},
		{url: "/compare?driver=Max+Verstappen&from=8&to=2", status: http.StatusBadRequest},
		{url: "/compare/chart?driver=Max+Verstappen&driver=Charles+Leclerc", status: http.StatusOK, contains: []string{"Lap time comparison"}},
		{url: "/nope", status: http.StatusNotFound},
	} {
		t.Run(tc.url, func(t *testing.T) {
			w := get(t, router, tc.url)

			require.Equal(t, tc.status, w.Code, w.Body.String())

			for _, s := range tc.contains {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestDashboardIndexShowsRunSummary(t *testing.T) {
	d, _ := newTestDashboard(t)

	_, summary, _ := d.data()
	require.NotNil(t, summary)

	body := get(t, d.Router(), "/").Body.String()

	assert.Contains(t, body, summary.RunID)
	assert.Contains(t, body, "Linear")
}

func TestDashboardDriverExport(t *testing.T) {
	d, _ := newTestDashboard(t)
	router := d.Router()

	w := get(t, router, "/drivers/Max%20Verstappen/export.csv")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 13)

	for _, record := range records[1:] {
		assert.Equal(t, "Max Verstappen", record[0])
	}

	again := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/drivers/Max%20Verstappen/export.csv", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	router.ServeHTTP(again, req)

	assert.Equal(t, http.StatusNotModified, again.Code)
}

func TestDashboardCompareExport(t *testing.T) {
	d, _ := newTestDashboard(t)
	router := d.Router()

	t.Run("needs two drivers", func(t *testing.T) {
		w := get(t, router, "/compare/export.csv?driver=Max+Verstappen")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lap range", func(t *testing.T) {
		w := get(t, router, "/compare/export.csv?driver=Max+Verstappen&driver=Lewis+Hamilton&from=3&to=5")
		require.Equal(t, http.StatusOK, w.Code)

		records, err := csv.NewReader(w.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 7)

		assert.Equal(t, "Max Verstappen", records[1][0])
		assert.Equal(t, "3", records[1][1])
		assert.Equal(t, "Lewis Hamilton", records[6][0])
		assert.Equal(t, "5", records[6][1])
	})
}

func TestDashboardExportBundle(t *testing.T) {
	d, _ := newTestDashboard(t)

	w := get(t, d.Router(), "/export.zip")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	body := w.Body.Bytes()

	z, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var names []string

	for _, f := range z.File {
		names = append(names, f.Name)
	}

	assert.ElementsMatch(t, []string{
		"summary.json",
		"drivers/Charles_Leclerc.csv",
		"drivers/Lewis_Hamilton.csv",
		"drivers/Max_Verstappen.csv",
	}, names)
}

func TestDashboardAPILaps(t *testing.T) {
	d, _ := newTestDashboard(t)
	router := d.Router()

	var all []timing.Lap
	require.NoError(t, json.NewDecoder(get(t, router, "/api/laps").Body).Decode(&all))
	assert.Len(t, all, 36)

	var charles []timing.Lap
	require.NoError(t, json.NewDecoder(get(t, router, "/api/laps?driver=Charles+Leclerc").Body).Decode(&charles))
	require.Len(t, charles, 12)
	assert.Equal(t, "Charles Leclerc", charles[0].DriverName)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/laps?driver=Nobody").Code)
}

func TestDashboardMetrics(t *testing.T) {
	d, _ := newTestDashboard(t)
	router := d.Router()

	get(t, router, "/")

	body := get(t, router, "/metrics").Body.String()

	assert.Contains(t, body, "raceiq_laps 36")
	assert.Contains(t, body, `raceiq_dashboard_requests_total{route="index"} 1`)
	assert.Contains(t, body, `raceiq_dashboard_reloads_total{result="success"} 1`)
}

func TestDashboardReloadKeepsDataOnFailure(t *testing.T) {
	d, output := newTestDashboard(t)

	require.NoError(t, os.WriteFile(output, []byte("DriverName,Laps\n\"unterminated,1\n"), 0644))

	assert.Error(t, d.Reload())

	laps, _, _ := d.data()
	assert.Len(t, laps, 36)

	require.NoError(t, os.WriteFile(output, []byte(strings.Join([]string{"DriverName,Laps,Lap Time", "Max,1,90.5", ""}, "\n")), 0644))
	require.NoError(t, d.Reload())

	laps, _, _ = d.data()
	require.Len(t, laps, 1)
	assert.Equal(t, 90.5, laps[0].LapTime)
}

func TestDashboardWatch(t *testing.T) {
	d, output := newTestDashboard(t)

	ctx, cancel := context.WithCancel(context.Background())
	watchErr := make(chan error, 1)

	go func() {
		watchErr <- d.Watch(ctx)
	}()

	// let the watcher take its first listing before the file changes
	time.Sleep(2 * watchInterval)

	writeFile(t, output, "DriverName,Laps,Lap Time\nMax,1,90.5\nMax,2,90.1\n")

	require.Eventually(t, func() bool {
		laps, _, _ := d.data()
		return len(laps) == 2
	}, 10*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after the context was cancelled")
	}
}

func TestDashboardWatchCancelledBeforeStart(t *testing.T) {
	d, _ := newTestDashboard(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	watchErr := make(chan error, 1)

	go func() {
		watchErr <- d.Watch(ctx)
	}()

	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return for a cancelled context")
	}
}
