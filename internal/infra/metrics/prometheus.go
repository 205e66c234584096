package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodimagery_runs_processed_total",
		Help: "Total number of pipeline runs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prodimagery_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodimagery_frames_sampled_total",
		Help: "Total number of frames sampled across all runs",
	})

	ProductsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodimagery_products_detected_total",
		Help: "Total number of product detections accepted across all runs",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prodimagery_active_workers",
		Help: "Number of currently active workers processing runs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodimagery_retry_total",
		Help: "Total number of run retries",
	}, []string{"attempt"})
)
