package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_tasks_submitted_total",
			Help: "Total number of research tasks accepted",
		},
	)

	TasksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tasks_rejected_total",
			Help: "Submissions rejected before a task was created",
		},
		[]string{"reason"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_tasks_finished_total",
			Help: "Tasks that reached a terminal state",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_task_duration_seconds",
			Help:    "Wall time from worker start to terminal state",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TasksTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepresearch_tasks_tracked",
			Help: "Tasks currently held in the coordinator registry",
		},
	)

	TasksEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_tasks_evicted_total",
			Help: "Terminal tasks removed after their retention window",
		},
	)

	AnomalousProgress = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_anomalous_progress_total",
			Help: "Out-of-order progress updates that were ignored",
		},
	)

	// Streaming metrics
	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepresearch_active_subscribers",
			Help: "Progress streams currently attached",
		},
	)

	HeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_heartbeats_sent_total",
			Help: "Heartbeat events delivered to subscribers",
		},
	)

	// Collaborator metrics
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_collaborator_calls_total",
			Help: "Calls to search, extraction and LLM collaborators",
		},
		[]string{"collaborator", "outcome"},
	)

	HistoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_history_writes_total",
			Help: "History store writes by outcome",
		},
		[]string{"outcome"},
	)
)
