// Package metrics defines the Prometheus metrics exported by the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "minutes"

// Metrics holds the pipeline metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	AnalysisTotal   *prometheus.CounterVec
	AnalysisSeconds *prometheus.HistogramVec
	UploadsTotal    *prometheus.CounterVec
	UploadsInFlight prometheus.Gauge
	CleanupFailures prometheus.Counter
}

// New registers the pipeline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AnalysisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_jobs_total",
				Help:      "External analysis jobs by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_job_seconds",
				Help:      "Wall time of external analysis jobs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
			},
			[]string{"outcome"},
		),
		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Upload requests by final stage and status",
			},
			[]string{"stage", "status"},
		),
		UploadsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uploads_in_flight",
				Help:      "Uploads currently between save and completion",
			},
		),
		CleanupFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "staged_file_cleanup_failures_total",
				Help:      "Staged uploads that could not be removed",
			},
		),
	}
}

// ObserveAnalysis records one analysis job.
func (m *Metrics) ObserveAnalysis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisTotal.WithLabelValues(outcome).Inc()
	m.AnalysisSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveUpload records the terminal stage of one upload.
func (m *Metrics) ObserveUpload(stage, status string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(stage, status).Inc()
}

func (m *Metrics) UploadStarted() {
	if m == nil {
		return
	}
	m.UploadsInFlight.Inc()
}

func (m *Metrics) UploadFinished() {
	if m == nil {
		return
	}
	m.UploadsInFlight.Dec()
}

func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.CleanupFailures.Inc()
}
