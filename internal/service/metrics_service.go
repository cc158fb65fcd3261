package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is the JSON view of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	StoreCalls               uint64    `json:"store_calls"`
	AverageStoreDurationMs   float64   `json:"average_store_duration_ms"`
	EventsPublished          uint64    `json:"events_published"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the Prometheus registry for the API process.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheWrite      prometheus.Observer
	storeDuration   *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	sessionsBooked  prometheus.Gauge
	sessionsTotal   prometheus.Gauge

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	storeCount           uint64
	storeDurationTotal   uint64
	eventCount           uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weeklyworks_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weeklyworks_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weeklyworks_export_cache_lookups_total",
		Help: "Export cache lookups by result",
	}, []string{"result"})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "weeklyworks_export_cache_write_seconds",
		Help:    "Latency of export cache writes",
		Buckets: prometheus.DefBuckets,
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weeklyworks_store_duration_seconds",
		Help:    "Duration of persistence gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weeklyworks_events_published_total",
		Help: "Change notifications published by topic",
	}, []string{"topic"})

	sessionsTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weeklyworks_sessions",
		Help: "Training sessions currently scheduled",
	})

	sessionsBooked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weeklyworks_sessions_booked",
		Help: "Training sessions with a confirmed court booking",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "weeklyworks_goroutines",
		Help: "Number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheWrite, storeDuration, eventsPublished, sessionsTotal, sessionsBooked, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheWrite:      cacheWrite,
		storeDuration:   storeDuration,
		eventsPublished: eventsPublished,
		sessionsTotal:   sessionsTotal,
		sessionsBooked:  sessionsBooked,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheLookup counts an export cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks export cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records the duration of a gateway call.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.storeCount, 1)
	atomic.AddUint64(&m.storeDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordEvent counts a published change notification.
func (m *MetricsService) RecordEvent(topic string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Inc()
	atomic.AddUint64(&m.eventCount, 1)
}

// SetSessionCounts updates the schedule gauges after a refresh.
func (m *MetricsService) SetSessionCounts(total, booked int) {
	if m == nil {
		return
	}
	m.sessionsTotal.Set(float64(total))
	m.sessionsBooked.Set(float64(booked))
}

// Snapshot returns the aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	storeCount := atomic.LoadUint64(&m.storeCount)
	storeDuration := atomic.LoadUint64(&m.storeDurationTotal)

	snapshot := MetricsSnapshot{
		RequestsTotal:   requests,
		CacheHits:       hits,
		CacheMisses:     misses,
		StoreCalls:      storeCount,
		EventsPublished: atomic.LoadUint64(&m.eventCount),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	if storeCount > 0 {
		snapshot.AverageStoreDurationMs = float64(storeDuration) / float64(storeCount) / float64(time.Millisecond)
	}
	return snapshot
}
