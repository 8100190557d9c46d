package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relay/internal/application"
	"voice-relay/internal/metrics"
)

func TestMetrics_PipelineOutcomes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveOutcome("", 2*time.Second)
	m.ObserveOutcome("", time.Second)
	m.ObserveOutcome(application.KindNoSpeechDetected, 500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("no_speech_detected")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.RequestDuration))
}

func TestMetrics_StatesAndHTTP(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveState(application.StateTranscribing, 300*time.Millisecond)
	m.ObserveState(application.StateAwaitingGeneration, time.Second)
	m.ObserveRequest("POST /process-audio", http.StatusOK, time.Second)
	m.ObserveRequest("POST /process-audio", http.StatusTooManyRequests, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StateDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST /process-audio", "429")))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveOutcome(application.KindSynthesisFailed, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `relay_pipeline_requests_total{outcome="synthesis_failed"} 1`))
}

func TestMetrics_ImplementsObservers(t *testing.T) {
	var _ application.PipelineObserver = metrics.New(prometheus.NewRegistry())
}
