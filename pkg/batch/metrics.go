package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run job statistics
type Metrics struct {
	Registry *prometheus.Registry

	JobsTotal     *prometheus.CounterVec
	FallbackTotal prometheus.Counter
	JobDuration   *prometheus.HistogramVec
}

// NewMetrics creates metrics registered on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avatar_crop_jobs_total",
				Help: "Total number of processed jobs by result",
			},
			[]string{"result"},
		),
		FallbackTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "avatar_crop_anchor_fallback_total",
				Help: "Number of face-mode jobs cropped at the anchor because no face was found",
			},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avatar_crop_job_duration_seconds",
				Help:    "A histogram of job latencies",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
	}
	m.Registry.MustRegister(m.JobsTotal, m.FallbackTotal, m.JobDuration)
	return m
}

func (m *Metrics) observe(r Result, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if r.Kind != KindNone {
		result = string(r.Kind)
	}
	m.JobsTotal.WithLabelValues(result).Inc()
	if r.Outcome != nil && r.Outcome.Fallback {
		m.FallbackTotal.Inc()
	}
	m.JobDuration.WithLabelValues(string(r.Job.mode())).Observe(d.Seconds())
}

// WriteToTextfile writes the collected metrics in the text exposition format
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.Registry)
}
