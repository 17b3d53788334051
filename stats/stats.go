// Package stats tracks and exposes controller counters and latencies.
// Grounded on the teacher's stats.CoreStats convention (a counter per
// RPC plus a latency per RPC, named "<rpc>.n" / "<rpc>.ns" in
// proxy_stats.go / target_stats.go) but exported as prometheus metrics
// directly rather than through the teacher's own StatsD/tracker
// machinery, which isn't in the third-party stack this module carries.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the controller publishes. One Registry
// per process, wired into the RPC server.
type Registry struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	streamsCreated prometheus.Counter
	objectsCommitted prometheus.Counter
	snapshotAge    prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamctl",
			Name:      "requests_total",
			Help:      "Total controller RPCs handled, by operation.",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamctl",
			Name:      "errors_total",
			Help:      "Total controller RPCs that returned a non-zero error code, by operation and code.",
		}, []string{"op", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamctl",
			Name:      "request_duration_seconds",
			Help:      "Controller RPC handling latency, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		streamsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamctl",
			Name:      "streams_created_total",
			Help:      "Total streams created.",
		}),
		objectsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamctl",
			Name:      "wal_objects_committed_total",
			Help:      "Total WAL objects committed across all brokers.",
		}),
		snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamctl",
			Name:      "snapshot_age_offset",
			Help:      "Metadata-log offset of the most recent in-memory snapshot.",
		}),
	}
	return r
}

// MustRegister registers every metric with reg; panics on duplicate
// registration, matching the teacher's fail-fast startup posture.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.requests, r.errors, r.latency, r.streamsCreated, r.objectsCommitted, r.snapshotAge)
}

func (r *Registry) ObserveRequest(op string, start time.Time) {
	r.requests.WithLabelValues(op).Inc()
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Registry) ObserveError(op, code string) {
	r.errors.WithLabelValues(op, code).Inc()
}

func (r *Registry) IncStreamsCreated() { r.streamsCreated.Inc() }
func (r *Registry) IncObjectsCommitted() { r.objectsCommitted.Inc() }
func (r *Registry) SetSnapshotAge(offset int64) { r.snapshotAge.Set(float64(offset)) }
