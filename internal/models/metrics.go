package models

import "time"

// ServiceMetrics is a lightweight snapshot of process counters.
type ServiceMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SessionHits              uint64    `json:"session_hits"`
	SessionMisses            uint64    `json:"session_misses"`
	AllocationRuns           uint64    `json:"allocation_runs"`
	RecordsAllocated         uint64    `json:"records_allocated"`
	RecordsUnallocated       uint64    `json:"records_unallocated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
