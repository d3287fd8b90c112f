// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "content_compliance"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal    prometheus.Counter
	AnalysesFailed   *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Normalization metrics
	PayloadsNormalized  *prometheus.CounterVec
	NormalizationFailed *prometheus.CounterVec
	TranscriptSegments  prometheus.Histogram

	// Provider metrics
	GenerateAttempts  *prometheus.CounterVec
	GenerateErrors    *prometheus.CounterVec
	GenerateLatency   *prometheus.HistogramVec
	CandidatesDemoted *prometheus.CounterVec

	// Probe metrics
	ProbesTotal     *prometheus.CounterVec
	CandidateStatus *prometheus.GaugeVec

	// Matching metrics
	FindingsEmitted  *prometheus.CounterVec
	FindingsDropped  prometheus.Counter
	GuidelinesLoaded prometheus.Gauge

	// Narration metrics
	NarrationsTotal  *prometheus.CounterVec
	NarrationBytes   prometheus.Counter
	NarrationLatency prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of transcript analyses started",
		}),
		AnalysesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_failed_total",
			Help:      "Total number of failed analyses",
		}, []string{"reason"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of transcript analyses in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		PayloadsNormalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_normalized_total",
			Help:      "Total number of transcript payloads normalized, by recognized shape",
		}, []string{"shape"}),
		NormalizationFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_failed_total",
			Help:      "Total number of payloads that matched no shape",
		}, []string{"reason"}),
		TranscriptSegments: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcript_segments",
			Help:      "Segment count per normalized transcript",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		GenerateAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_attempts_total",
			Help:      "Total number of generation attempts per candidate",
		}, []string{"provider", "model"}),
		GenerateErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_errors_total",
			Help:      "Total number of generation errors per candidate, by error class",
		}, []string{"provider", "model", "class"}),
		GenerateLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_latency_seconds",
			Help:      "Generation request latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		CandidatesDemoted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_demoted_total",
			Help:      "Total number of within-tier candidate demotions",
		}, []string{"provider", "model"}),

		ProbesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of availability probes, by resulting status",
		}, []string{"provider", "model", "status"}),
		CandidateStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidate_status",
			Help:      "Current candidate status (0 unknown, 1 available, 2 unavailable, 3 rate limited)",
		}, []string{"provider", "model"}),

		FindingsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_emitted_total",
			Help:      "Total number of compliance findings emitted, by severity",
		}, []string{"severity"}),
		FindingsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_dropped_total",
			Help:      "Total number of findings dropped below the confidence floor",
		}),
		GuidelinesLoaded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "guidelines_loaded",
			Help:      "Number of guidelines in the active index snapshot",
		}),

		NarrationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrations_total",
			Help:      "Total number of narration requests, by outcome",
		}, []string{"outcome"}),
		NarrationBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narration_bytes_total",
			Help:      "Total audio bytes streamed to callers",
		}),
		NarrationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narration_first_byte_seconds",
			Help:      "Time to first audio byte from the synthesis backend",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordAnalysisStart records a new analysis starting.
func (m *Metrics) RecordAnalysisStart() {
	m.AnalysesTotal.Inc()
}

// RecordAnalysisEnd records an analysis ending.
func (m *Metrics) RecordAnalysisEnd(failReason string, durationSeconds float64) {
	m.AnalysisDuration.Observe(durationSeconds)
	if failReason != "" {
		m.AnalysesFailed.WithLabelValues(failReason).Inc()
	}
}

// RecordNormalization records a normalization outcome.
func (m *Metrics) RecordNormalization(shape string, segments int) {
	m.PayloadsNormalized.WithLabelValues(shape).Inc()
	m.TranscriptSegments.Observe(float64(segments))
}

// RecordNormalizationFailure records an unrecognized payload.
func (m *Metrics) RecordNormalizationFailure(reason string) {
	m.NormalizationFailed.WithLabelValues(reason).Inc()
}

// RecordGenerateAttempt records one generation attempt against a candidate.
func (m *Metrics) RecordGenerateAttempt(provider, model string, err error, class string, latencySeconds float64) {
	m.GenerateAttempts.WithLabelValues(provider, model).Inc()
	m.GenerateLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.GenerateErrors.WithLabelValues(provider, model, class).Inc()
	}
}

// RecordDemotion records a within-tier candidate demotion.
func (m *Metrics) RecordDemotion(provider, model string) {
	m.CandidatesDemoted.WithLabelValues(provider, model).Inc()
}

// RecordProbe records an availability probe outcome.
func (m *Metrics) RecordProbe(provider, model, status string) {
	m.ProbesTotal.WithLabelValues(provider, model, status).Inc()
}

// RecordCandidateStatus records a candidate's current status code.
func (m *Metrics) RecordCandidateStatus(provider, model string, status int) {
	m.CandidateStatus.WithLabelValues(provider, model).Set(float64(status))
}

// RecordFinding records an emitted compliance finding.
func (m *Metrics) RecordFinding(severity string) {
	m.FindingsEmitted.WithLabelValues(severity).Inc()
}

// RecordFindingDropped records a finding dropped below the confidence floor.
func (m *Metrics) RecordFindingDropped() {
	m.FindingsDropped.Inc()
}

// RecordGuidelinesLoaded records the size of the active guideline snapshot.
func (m *Metrics) RecordGuidelinesLoaded(n int) {
	m.GuidelinesLoaded.Set(float64(n))
}

// RecordNarration records a narration request outcome.
func (m *Metrics) RecordNarration(outcome string) {
	m.NarrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordNarrationBytes records audio bytes streamed to a caller.
func (m *Metrics) RecordNarrationBytes(n int) {
	m.NarrationBytes.Add(float64(n))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
