package manager

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_registrations_total",
			Help: "Total number of Register operations",
		},
		[]string{"status"},
	)

	loginCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_logins_total",
			Help: "Total number of Login operations",
		},
		[]string{"status"},
	)

	createTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_tasks_created_total",
			Help: "Total number of CreateTask operations",
		},
		[]string{"status"},
	)

	updateTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_tasks_updated_total",
			Help: "Total number of UpdateTask operations",
		},
		[]string{"status"},
	)

	deleteTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktracker_tasks_deleted_total",
			Help: "Total number of DeleteTask operations",
		},
		[]string{"status"},
	)

	taskTitleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasktracker_task_title_length_chars",
			Help:    "Length distribution of task titles",
			Buckets: []float64{10, 25, 50, 100, 200},
		},
	)

	taskOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasktracker_task_op_duration_seconds",
			Help:    "Duration of task store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	avatarUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasktracker_avatar_upload_bytes",
			Help:    "Size distribution of uploaded avatars",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func observe(op string, start time.Time) {
	taskOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
