package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transcribeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperlm_transcribe_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"status"})

	transcribeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "whisperlm_transcribe_duration_seconds",
		Help:    "Wall time of complete transcription requests in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	audioDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "whisperlm_audio_duration_seconds",
		Help:    "Duration of uploaded audio in seconds",
		Buckets: []float64{5, 15, 60, 300, 900, 1800, 3600},
	})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "whisperlm_stage_latency_seconds",
		Help:    "Latency of individual pipeline stages in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	stageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperlm_stage_outcomes_total",
		Help: "Pipeline stage outcomes",
	}, []string{"stage", "outcome"})

	separateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperlm_separate_requests_total",
		Help: "Total number of separation requests",
	}, []string{"status"})
)

// Pipeline stage names used as metric labels.
const (
	StageLoad       = "load"
	StageTranscribe = "transcribe"
	StageAlign      = "align"
	StageDiarize    = "diarize"
	StageSeparate   = "separate"
)

// RecordTranscribeRequest records the outcome and wall time of one
// transcription request.
func RecordTranscribeRequest(status string, elapsed time.Duration) {
	transcribeRequests.WithLabelValues(status).Inc()
	transcribeDuration.Observe(elapsed.Seconds())
}

// RecordAudioDuration records the duration of decoded input audio.
func RecordAudioDuration(seconds float64) {
	audioDuration.Observe(seconds)
}

// RecordStage records one pipeline stage execution.
func RecordStage(stage, outcome string, elapsed time.Duration) {
	stageLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
	stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordSeparateRequest records the outcome of one separation request.
func RecordSeparateRequest(status string) {
	separateRequests.WithLabelValues(status).Inc()
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
