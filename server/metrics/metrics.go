// Package metrics exposes Prometheus collectors for the classification
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// Classification metrics
	FramesClassified *prometheus.CounterVec
	FrameErrors      *prometheus.CounterVec
	ClassifyLatency  prometheus.Histogram
	Confidence       *prometheus.HistogramVec

	// Session metrics
	ActiveSessions prometheus.Gauge

	// Alert metrics
	AlertsRaised    *prometheus.CounterVec
	AlertsDropped   prometheus.Counter
	AlertsPersisted prometheus.Counter
	NotifyFailures  *prometheus.CounterVec
	AlertQueueDepth prometheus.Gauge
}

// New builds the collectors on a private registry. Process and Go runtime
// collectors are registered alongside them.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		FramesClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pose_frames_classified_total",
				Help: "Total number of frames classified, by resulting label",
			},
			[]string{"label"},
		),

		FrameErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pose_frame_errors_total",
				Help: "Total number of rejected frames",
			},
			[]string{"reason"},
		),

		ClassifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pose_classify_latency_seconds",
				Help:    "Time taken to classify one frame",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // From 10us to ~20ms
			},
		),

		Confidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pose_label_confidence",
				Help:    "Confidence of the reported label",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"label"},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pose_active_sessions",
				Help: "Number of tracked sessions",
			},
		),

		AlertsRaised: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pose_alerts_raised_total",
				Help: "Total number of alerts raised",
			},
			[]string{"label"},
		),

		AlertsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pose_alerts_dropped_total",
				Help: "Total number of alerts dropped because the dispatch queue was full",
			},
		),

		AlertsPersisted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pose_alerts_persisted_total",
				Help: "Total number of alerts written to the alert store",
			},
		),

		NotifyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pose_notify_failures_total",
				Help: "Total number of failed alert notifications",
			},
			[]string{"notifier"},
		),

		AlertQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pose_alert_queue_depth",
				Help: "Number of alerts waiting for dispatch",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FramesClassified,
		m.FrameErrors,
		m.ClassifyLatency,
		m.Confidence,
		m.ActiveSessions,
		m.AlertsRaised,
		m.AlertsDropped,
		m.AlertsPersisted,
		m.NotifyFailures,
		m.AlertQueueDepth,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
