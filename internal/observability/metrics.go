package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	roadmapRequestsTotal  *prometheus.CounterVec
	roadmapLatencySeconds *prometheus.HistogramVec
	roadmapCommitsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for roadmap
// lifecycle observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		roadmapRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadmap_requests_total",
			Help: "Total number of roadmap API requests served.",
		}, []string{"method", "route", "status"})

		roadmapLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadmap_latency_seconds",
			Help:    "Latency distribution for roadmap API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"})

		roadmapCommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadmap_commits_total",
			Help: "Number of committed roadmap versions by commit kind.",
		}, []string{"kind"})

		prometheus.MustRegister(roadmapRequestsTotal, roadmapLatencySeconds, roadmapCommitsTotal)
	})
}

// RoadmapRequests exposes the counter for roadmap API requests.
func RoadmapRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return roadmapRequestsTotal
}

// RoadmapLatency exposes the latency histogram for roadmap API requests.
func RoadmapLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return roadmapLatencySeconds
}

// RoadmapCommits exposes the counter for committed versions.
func RoadmapCommits() *prometheus.CounterVec {
	RegisterMetrics()
	return roadmapCommitsTotal
}
