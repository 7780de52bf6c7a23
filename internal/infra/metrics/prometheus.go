package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_videos_processed_total",
		Help: "Total number of videos that reached a terminal state, by status",
	}, []string{"status"})

	VideosSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_videos_skipped_total",
		Help: "Total number of skipped videos, by reason",
	}, []string{"reason"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fingerprint_stage_duration_seconds",
		Help:    "Duration of fingerprint pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesEmbeddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fingerprint_frames_embedded_total",
		Help: "Total number of frames turned into feature vectors",
	})

	SegmentsTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fingerprint_segments_truncated_total",
		Help: "Total number of segments cut short by a decode failure or end of stream",
	})

	ActiveVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingerprint_active_videos",
		Help: "Number of videos currently in the pipeline",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_retry_total",
		Help: "Total number of candidate message requeues",
	}, []string{"attempt"})
)
