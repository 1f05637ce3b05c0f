package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the meeting pipeline.
type PipelineMetrics struct {
	// Queue metrics
	QueueItemsTotal  *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	QueueWaitSeconds *prometheus.HistogramVec
	DLQItemsTotal    *prometheus.CounterVec

	// Processing metrics
	MeetingsProcessedTotal *prometheus.CounterVec
	StageSeconds           *prometheus.HistogramVec
	SegmentsTotal          *prometheus.CounterVec
	SpeakerMatchesTotal    *prometheus.CounterVec
	SpeakerConfidence      prometheus.Histogram

	// AI metrics
	AIOperationsTotal *prometheus.CounterVec
	AILatencySeconds  *prometheus.HistogramVec
}

// DefaultPipelineMetrics creates metrics on the default registerer.
func DefaultPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetrics(prometheus.DefaultRegisterer)
}

// NewPipelineMetrics creates a new set of pipeline metrics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		QueueItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_queue_items_total",
				Help: "Total messages entering the processing queue",
			},
			[]string{"queue", "priority"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meeting_queue_depth",
				Help: "Current queue depth",
			},
			[]string{"queue"},
		),
		QueueWaitSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_queue_wait_seconds",
				Help:    "Time spent in queue before pickup",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
			},
			[]string{"queue"},
		),
		DLQItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_dlq_items_total",
				Help: "Total messages moved to the dead letter queue",
			},
			[]string{"queue", "error_type"},
		),
		MeetingsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_meetings_total",
				Help: "Meetings processed by final status",
			},
			[]string{"status"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_pipeline_stage_seconds",
				Help:    "Latency per pipeline stage",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		SegmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_segments_total",
				Help: "Transcript segments processed, by outcome",
			},
			[]string{"outcome"},
		),
		SpeakerMatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_speaker_matches_total",
				Help: "Speaker identification outcomes",
			},
			[]string{"result"},
		),
		SpeakerConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meeting_speaker_confidence",
				Help:    "Cosine similarity of accepted speaker matches",
				Buckets: []float64{0.1, 0.2, 0.3, 0.35, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),
		AIOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_ai_operations_total",
				Help: "Total AI operations",
			},
			[]string{"operation", "status"},
		),
		AILatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_ai_latency_seconds",
				Help:    "AI operation latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// RecordQueueEnqueue records a message entering a queue.
func (m *PipelineMetrics) RecordQueueEnqueue(queue, priority string) {
	m.QueueItemsTotal.WithLabelValues(queue, priority).Inc()
}

// RecordQueueDepth sets the current queue depth.
func (m *PipelineMetrics) RecordQueueDepth(queue string, depth float64) {
	m.QueueDepth.WithLabelValues(queue).Set(depth)
}

// RecordQueueWait records the time a message spent queued.
func (m *PipelineMetrics) RecordQueueWait(queue string, seconds float64) {
	m.QueueWaitSeconds.WithLabelValues(queue).Observe(seconds)
}

// RecordDLQItem records a message moved to the dead letter queue.
func (m *PipelineMetrics) RecordDLQItem(queue, errorType string) {
	m.DLQItemsTotal.WithLabelValues(queue, errorType).Inc()
}

// RecordMeetingProcessed records a finished pipeline run.
func (m *PipelineMetrics) RecordMeetingProcessed(status string) {
	m.MeetingsProcessedTotal.WithLabelValues(status).Inc()
}

// RecordStageLatency records stage latency.
func (m *PipelineMetrics) RecordStageLatency(stage string, seconds float64) {
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordSegment records a processed segment outcome ("ok" or "failed").
func (m *PipelineMetrics) RecordSegment(outcome string) {
	m.SegmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordSpeakerMatch records a speaker identification outcome and, for
// accepted matches, the similarity score.
func (m *PipelineMetrics) RecordSpeakerMatch(result string, score float64) {
	m.SpeakerMatchesTotal.WithLabelValues(result).Inc()
	if result == "matched" {
		m.SpeakerConfidence.Observe(score)
	}
}

// RecordAIOperation records an AI call and its latency.
func (m *PipelineMetrics) RecordAIOperation(operation, status string, seconds float64) {
	m.AIOperationsTotal.WithLabelValues(operation, status).Inc()
	m.AILatencySeconds.WithLabelValues(operation).Observe(seconds)
}
