package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAnalysis("success", 2*time.Second)
	m.ObserveAnalysis("malformed_output", time.Second)
	m.ObserveUpload("done", "ok")
	m.UploadStarted()
	m.CleanupFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisTotal.WithLabelValues("malformed_output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("done", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures))

	m.UploadFinished()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.UploadsInFlight))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAnalysis("success", time.Second)
	m.ObserveUpload("done", "ok")
	m.UploadStarted()
	m.UploadFinished()
	m.CleanupFailed()
}
