// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_voice_query"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Pipeline metrics
	QueriesTotal    *prometheus.CounterVec
	QueriesActive   prometheus.Gauge
	BudgetMet       *prometheus.CounterVec
	StageLatency    *prometheus.HistogramVec
	QueryClasses    *prometheus.CounterVec
	InfoDensity     prometheus.Histogram
	SynthesisFailed prometheus.Counter

	// Knowledge metrics
	ContextTiers    *prometheus.CounterVec
	ContextSections prometheus.Histogram

	// Generation metrics
	RaceOutcomes      *prometheus.CounterVec
	GenerationErrors  *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec

	// STT metrics
	STTErrors *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Live feed metrics
	LiveClients prometheus.Gauge

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of voice queries by outcome",
		}, []string{"outcome"}),
		QueriesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queries_active",
			Help:      "Number of voice queries currently in the pipeline",
		}),
		BudgetMet: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_total",
			Help:      "Completed queries split by whether they met the latency budget",
		}, []string{"met"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 15, 30},
		}, []string{"stage"}),
		QueryClasses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_class_total",
			Help:      "Transcripts by query class",
		}, []string{"class"}),
		InfoDensity: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "info_density",
			Help:      "Information density score of delivered answers",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		SynthesisFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failed_total",
			Help:      "Answers delivered without audio because synthesis failed",
		}),

		ContextTiers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_tier_total",
			Help:      "Context filter decisions by tier",
		}, []string{"tier"}),
		ContextSections: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_sections",
			Help:      "Number of knowledge sections selected per query",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),

		RaceOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "race_outcomes_total",
			Help:      "Generation results by winning path",
		}, []string{"path"}),
		GenerationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Generation request failures by model and kind",
		}, []string{"model", "kind"}),
		GenerationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Completed generation request latency by model",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"model"}),

		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

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

		LiveClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected live feed WebSocket clients",
		}),

		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "gRPC calls by method and status code",
		}, []string{"method", "code"}),
	}
}

// RecordQueryStart records a query entering the pipeline.
func (m *Metrics) RecordQueryStart() {
	m.QueriesActive.Inc()
}

// RecordQueryEnd records a query leaving the pipeline.
func (m *Metrics) RecordQueryEnd(outcome string, metBudget bool) {
	m.QueriesActive.Dec()
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	if metBudget {
		m.BudgetMet.WithLabelValues("true").Inc()
	} else {
		m.BudgetMet.WithLabelValues("false").Inc()
	}
}

// RecordStage records the latency of one pipeline stage.
func (m *Metrics) RecordStage(stage string, latencySeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(latencySeconds)
}

// RecordQueryClass records the class assigned to a transcript.
func (m *Metrics) RecordQueryClass(class string) {
	m.QueryClasses.WithLabelValues(class).Inc()
}

// RecordDensity records the density score of an answer.
func (m *Metrics) RecordDensity(score float64) {
	m.InfoDensity.Observe(score)
}

// RecordSynthesisFailed records an answer delivered without audio.
func (m *Metrics) RecordSynthesisFailed() {
	m.SynthesisFailed.Inc()
}

// RecordContext records a context filter decision.
func (m *Metrics) RecordContext(tier string, sections int) {
	m.ContextTiers.WithLabelValues(tier).Inc()
	m.ContextSections.Observe(float64(sections))
}

// RecordRace records which path produced a generation result.
func (m *Metrics) RecordRace(path string) {
	m.RaceOutcomes.WithLabelValues(path).Inc()
}

// RecordGeneration records a completed generation request.
func (m *Metrics) RecordGeneration(model string, latencySeconds float64) {
	m.GenerationLatency.WithLabelValues(model).Observe(latencySeconds)
}

// RecordGenerationError records a failed generation request.
func (m *Metrics) RecordGenerationError(model, kind string) {
	m.GenerationErrors.WithLabelValues(model, kind).Inc()
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordLiveClients sets the number of connected live feed clients.
func (m *Metrics) RecordLiveClients(n int) {
	m.LiveClients.Set(float64(n))
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
