package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	sessionLookups     *prometheus.CounterVec
	allocationRuns     *prometheus.CounterVec
	allocationRecords  *prometheus.CounterVec
	allocationDuration prometheus.Histogram
	conflicts          prometheus.Gauge

	requestCount         uint64
	requestDurationTotal uint64
	sessionHitCount      uint64
	sessionMissCount     uint64
	runCount             uint64
	allocatedCount       uint64
	unallocatedCount     uint64
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
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sessionLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_lookups_total",
		Help: "Allocation session lookups by result",
	}, []string{"result"})

	allocationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_runs_total",
		Help: "Allocation runs by final state",
	}, []string{"state"})

	allocationRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_records_total",
		Help: "Allocation records produced, by outcome",
	}, []string{"outcome"})

	allocationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_run_duration_seconds",
		Help:    "Duration of allocation runs",
		Buckets: prometheus.DefBuckets,
	})

	conflicts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allocation_conflicts",
		Help: "Conflicting records in the most recent run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sessionLookups, allocationRuns, allocationRecords, allocationDuration, conflicts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		sessionLookups:     sessionLookups,
		allocationRuns:     allocationRuns,
		allocationRecords:  allocationRecords,
		allocationDuration: allocationDuration,
		conflicts:          conflicts,
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
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordSessionLookup counts session store hits and misses.
func (m *MetricsService) RecordSessionLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.sessionLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.sessionHitCount, 1)
		return
	}
	m.sessionLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.sessionMissCount, 1)
}

// ObserveAllocationRun records the outcome of a run.
func (m *MetricsService) ObserveAllocationRun(state models.RunState, summary models.AllocationSummary, duration time.Duration) {
	if m == nil {
		return
	}
	m.allocationRuns.WithLabelValues(string(state)).Inc()
	m.allocationDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.runCount, 1)
	if state != models.RunStateComplete {
		return
	}
	m.allocationRecords.WithLabelValues("allocated").Add(float64(summary.Allocated))
	m.allocationRecords.WithLabelValues("unallocated").Add(float64(summary.Unallocated))
	m.conflicts.Set(float64(summary.Conflicts))
	atomic.AddUint64(&m.allocatedCount, uint64(summary.Allocated))
	atomic.AddUint64(&m.unallocatedCount, uint64(summary.Unallocated))
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() models.ServiceMetrics {
	if m == nil {
		return models.ServiceMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.ServiceMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SessionHits:              atomic.LoadUint64(&m.sessionHitCount),
		SessionMisses:            atomic.LoadUint64(&m.sessionMissCount),
		AllocationRuns:           atomic.LoadUint64(&m.runCount),
		RecordsAllocated:         atomic.LoadUint64(&m.allocatedCount),
		RecordsUnallocated:       atomic.LoadUint64(&m.unallocatedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
