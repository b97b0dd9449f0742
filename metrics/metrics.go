// Package metrics exposes Prometheus metrics for the quiz backend on a
// dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics from its own registry.
type MetricsServer struct {
	registry *prometheus.Registry
	recorder *Recorder
	srv      *http.Server
}

// New creates a metrics server listening on addr. The returned server's
// Recorder is registered under namespace.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	recorder, err := NewRecorder(namespace, registry)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		recorder: recorder,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Recorder returns the recorder bound to this server's registry.
func (m *MetricsServer) Recorder() *Recorder {
	return m.recorder
}

// Registry returns the registry backing /metrics.
func (m *MetricsServer) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Recorder records request and domain metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	requestDuration *prometheus.HistogramVec
	signUps         *prometheus.CounterVec
	signIns         *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	pointsAwarded   prometheus.Counter
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Sign-up attempts by outcome.",
		}, []string{"outcome"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Graded answer submissions by outcome.",
		}, []string{"outcome"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Total score points credited to identities.",
		}),
	}

	for _, c := range []prometheus.Collector{r.requestDuration, r.signUps, r.signIns, r.submissions, r.pointsAwarded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveRequest records the latency of a served request.
func (r *Recorder) ObserveRequest(route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

// SignUp counts a sign-up attempt. outcome is e.g. "created", "duplicate" or "error".
func (r *Recorder) SignUp(outcome string) {
	if r == nil {
		return
	}
	r.signUps.WithLabelValues(outcome).Inc()
}

// SignIn counts a sign-in attempt. outcome is e.g. "ok", "unknown_user", "bad_credential" or "error".
func (r *Recorder) SignIn(outcome string) {
	if r == nil {
		return
	}
	r.signIns.WithLabelValues(outcome).Inc()
}

// Submission counts a graded submission and the points it credited.
func (r *Recorder) Submission(correct bool, awarded uint32) {
	if r == nil {
		return
	}
	outcome := "wrong"
	if correct {
		outcome = "correct"
	}
	r.submissions.WithLabelValues(outcome).Inc()
	r.pointsAwarded.Add(float64(awarded))
}

// SubmissionFailed counts a submission rejected before or during grading.
func (r *Recorder) SubmissionFailed(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

// PoolStatsFunc reports connection pool occupancy.
type PoolStatsFunc func() (open, inUse, idle int)

// RegisterPoolStats exposes connection pool gauges read from stats on every scrape.
func RegisterPoolStats(namespace string, reg prometheus.Registerer, stats PoolStatsFunc) error {
	gauges := []struct {
		name string
		help string
		pick func() float64
	}{
		{"db_connections_open", "Open database connections.", func() float64 { o, _, _ := stats(); return float64(o) }},
		{"db_connections_in_use", "Database connections currently acquired.", func() float64 { _, u, _ := stats(); return float64(u) }},
		{"db_connections_idle", "Idle database connections.", func() float64 { _, _, i := stats(); return float64(i) }},
	}

	for _, g := range gauges {
		err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
			Help:      g.help,
		}, g.pick))
		if err != nil {
			return err
		}
	}
	return nil
}
