// Package metrics tracks service-level counters for the metrics endpoint.
package metrics

import (
	"math"
	"sync/atomic"
)

// Recorder accumulates request counters with atomic operations so it can
// be shared across handler goroutines without locking.
type Recorder struct {
	totalRequests   atomic.Int64
	fraudDetections atomic.Int64
	totalMillis     atomic.Int64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record registers one scored transaction.
func (r *Recorder) Record(isFraud bool, elapsedMs float64) {
	r.totalRequests.Add(1)
	if isFraud {
		r.fraudDetections.Add(1)
	}
	r.totalMillis.Add(int64(math.Round(elapsedMs)))
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	FraudDetections   int64   `json:"fraud_detections"`
	FraudRate         float64 `json:"fraud_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// Snapshot returns the current counter values. Rates are zero when no
// requests have been recorded yet.
func (r *Recorder) Snapshot() Snapshot {
	total := r.totalRequests.Load()
	fraud := r.fraudDetections.Load()
	millis := r.totalMillis.Load()

	snap := Snapshot{
		TotalRequests:   total,
		FraudDetections: fraud,
	}
	if total > 0 {
		snap.FraudRate = float64(fraud) / float64(total)
		snap.AvgResponseTimeMs = float64(millis) / float64(total)
	}
	return snap
}
