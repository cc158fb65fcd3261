package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshotAggregates(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/sessions", http.StatusOK, 10*time.Millisecond)
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/sessions", http.StatusOK, 30*time.Millisecond)
	metrics.RecordCacheLookup(true)
	metrics.RecordCacheLookup(true)
	metrics.RecordCacheLookup(false)
	metrics.ObserveDBQuery("save", 4*time.Millisecond)
	metrics.RecordEvent("sessions")

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 20.0, snapshot.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snapshot.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snapshot.StoreCalls)
	assert.InDelta(t, 4.0, snapshot.AverageStoreDurationMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.EventsPublished)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.SetSessionCounts(5, 2)
	metrics.RecordEvent("students")

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "weeklyworks_")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordCacheLookup(true)
	metrics.ObserveDBQuery("save", time.Millisecond)
	assert.Equal(t, MetricsSnapshot{}, metrics.Snapshot())

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
