package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	Mutations      *prometheus.CounterVec
	TreeBuild      prometheus.Histogram
	TreeNodes      prometheus.Histogram
	TreeCache      *prometheus.CounterVec
	BlobOps        *prometheus.CounterVec
	LoginAttempts  *prometheus.CounterVec
	BlobsSwept     prometheus.Counter
	ChangesFailed  prometheus.Counter
}

// New creates and registers all Prometheus metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orgstructure_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgstructure_mutations_total",
			Help: "Committed entity mutations",
		}, []string{"entity", "action"}),
		TreeBuild: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgstructure_tree_build_duration_seconds",
			Help:    "Time spent building the organization tree",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		TreeNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgstructure_tree_nodes",
			Help:    "Nodes emitted per organization tree",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		TreeCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgstructure_tree_cache_requests_total",
			Help: "Organization tree cache lookups by result",
		}, []string{"result"}),
		BlobOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgstructure_blob_operations_total",
			Help: "Blob store operations by kind and outcome",
		}, []string{"op", "outcome"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orgstructure_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		BlobsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "orgstructure_blobs_swept_total",
			Help: "Orphaned blobs removed by the sweeper",
		}),
		ChangesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "orgstructure_change_events_failed_total",
			Help: "Change events that could not be published",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) IncrementMutation(entity, action string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entity, action).Inc()
}

func (m *Metrics) ObserveTreeBuild(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.TreeBuild.Observe(d.Seconds())
	m.TreeNodes.Observe(float64(nodes))
}

func (m *Metrics) IncrementTreeCache(result string) {
	if m == nil {
		return
	}
	m.TreeCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementBlobOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BlobOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddBlobsSwept(n int) {
	if m == nil {
		return
	}
	m.BlobsSwept.Add(float64(n))
}

func (m *Metrics) IncrementChangesFailed() {
	if m == nil {
		return
	}
	m.ChangesFailed.Inc()
}
