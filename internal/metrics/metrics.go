package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// Provider calls, labelled by gateway operation.
	AssistantCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "assistant",
			Name:      "calls_total",
			Help:      "Total calls to the assistant provider",
		},
		[]string{"operation", "status"},
	)

	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "reminder",
			Name:      "notifications_total",
			Help:      "Reminder notifications attempted, by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	ReminderScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "reminder",
			Name:      "scans_total",
			Help:      "Reminder scans run, by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	SaveJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "save",
			Name:      "jobs_total",
			Help:      "Save-reminder jobs processed",
		},
		[]string{"status"},
	)

	SaveQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "save",
			Name:      "queue_depth",
			Help:      "Save-reminder jobs waiting in the local queue",
		},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cs_ai_agent",
			Subsystem: "socket",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)
