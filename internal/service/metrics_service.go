package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevaportal/portal-api/internal/models"
)

// MetricsSnapshot is a JSON-friendly summary of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	SessionsCreated          uint64    `json:"sessionsCreated"`
	MembershipConflicts      uint64    `json:"membershipConflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	accessDecisions  *prometheus.CounterVec
	sessionsCreated  *prometheus.CounterVec
	membershipErrors *prometheus.CounterVec
	lifecycleEvents  *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	sessionsCreatedCount uint64
	conflictCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by route and tenant project",
	}, []string{"method", "path", "project", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Route access decisions by outcome and reason",
	}, []string{"outcome", "reason"})

	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_sessions_created_total",
		Help: "Sessions created by schedule runs",
	}, []string{"project"})

	membershipErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_membership_conflicts_total",
		Help: "Membership edits rejected because of stale versions or double booking",
	}, []string{"kind"})

	lifecycleEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_lifecycle_events_total",
		Help: "Check-in, check-out and report transitions",
	}, []string{"event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		accessDecisions, sessionsCreated, membershipErrors, lifecycleEvents, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		accessDecisions:  accessDecisions,
		sessionsCreated:  sessionsCreated,
		membershipErrors: membershipErrors,
		lifecycleEvents:  lifecycleEvents,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
// An empty project is recorded as "none".
func (m *MetricsService) ObserveHTTPRequest(method, path, project string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if project == "" {
		project = "none"
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, project, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAccessDecision counts gate verdicts.
func (m *MetricsService) RecordAccessDecision(decision models.AccessDecision) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(string(decision.Outcome), decision.Reason).Inc()
}

// RecordSessionsCreated counts sessions written by a schedule run.
func (m *MetricsService) RecordSessionsCreated(projectKey string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsCreated.WithLabelValues(projectKey).Add(float64(n))
	atomic.AddUint64(&m.sessionsCreatedCount, uint64(n))
}

// RecordMembershipConflict counts rejected membership edits. kind is "stale_version" or "double_booked".
func (m *MetricsService) RecordMembershipConflict(kind string) {
	if m == nil {
		return
	}
	m.membershipErrors.WithLabelValues(kind).Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// RecordLifecycleEvent counts session transitions.
func (m *MetricsService) RecordLifecycleEvent(event string) {
	if m == nil {
		return
	}
	m.lifecycleEvents.WithLabelValues(event).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		SessionsCreated:          atomic.LoadUint64(&m.sessionsCreatedCount),
		MembershipConflicts:      atomic.LoadUint64(&m.conflictCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
