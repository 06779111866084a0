package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis workflow metrics
var (
	// AnalysesProcessed counts completed analysis jobs by outcome.
	AnalysesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "highlight",
			Name:      "analyses_processed_total",
			Help:      "Total number of analysis jobs processed",
		},
		[]string{"status"},
	)

	// ActiveAnalyses tracks the number of currently running analysis jobs.
	ActiveAnalyses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "highlight",
			Name:      "active_analyses",
			Help:      "Number of currently running analysis jobs",
		},
	)

	// AnalysisDuration tracks end-to-end analysis job duration.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "highlight",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end time for one analysis job",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)

	// InferenceDuration tracks the inference service call duration.
	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "highlight",
			Name:      "inference_duration_seconds",
			Help:      "Time spent in the multimodal inference call",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	// PublishDuration tracks object storage upload duration.
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "highlight",
			Name:      "publish_duration_seconds",
			Help:      "Time taken to publish files to object storage",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
	)

	// ClipsExtracted tracks how many clips an analysis yields.
	ClipsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "highlight",
			Name:      "clips_extracted",
			Help:      "Number of highlight clips extracted per analysis",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

// Media tool metrics
var (
	// FFmpegDuration tracks the runtime of ffmpeg/ffprobe invocations by operation.
	FFmpegDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "highlight",
			Name:      "ffmpeg_duration_seconds",
			Help:      "Time taken by media tool invocations",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"operation"},
	)

	// SegmentsCreated counts segment files produced by the segmenter.
	SegmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "highlight",
			Name:      "segments_created_total",
			Help:      "Total number of segment files created",
		},
	)

	// ExportsProduced counts export deliverables by outcome.
	ExportsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "highlight",
			Name:      "exports_produced_total",
			Help:      "Total number of export operations",
		},
		[]string{"status"},
	)
)

// RecordSuccess records a successfully completed analysis.
func RecordSuccess() {
	AnalysesProcessed.WithLabelValues("success").Inc()
}

// RecordFailure records a failed analysis.
func RecordFailure() {
	AnalysesProcessed.WithLabelValues("failed").Inc()
}
