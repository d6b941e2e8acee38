package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики воркера.
var (
	// JobsTotal — выполненные задания по функции и исходу (complete, fail).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_worker_jobs_total",
		Help: "Jobs executed by the worker, by function and outcome",
	}, []string{"function", "outcome"})

	// JobDuration — длительность выполнения callback.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foreman_worker_job_duration_seconds",
		Help:    "Time spent inside job callbacks",
		Buckets: prometheus.DefBuckets,
	}, []string{"function"})

	// ReconnectAttempts — попытки переподключения по результату (ok, failed).
	ReconnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_worker_reconnect_attempts_total",
		Help: "Reconnect attempts made by the connection supervisor",
	}, []string{"result"})

	// PollsTotal — итерации poll с разбивкой по наличию активности.
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foreman_worker_polls_total",
		Help: "Poll iterations, by whether any connection had activity",
	}, []string{"activity"})

	// JobLockContention — отказы в захвате job lock.
	JobLockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foreman_worker_job_lock_contention_total",
		Help: "Job lock acquisitions refused because the lock was already held",
	})

	// AliveConnections — число живых соединений на начало последней итерации.
	AliveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foreman_worker_alive_connections",
		Help: "Connections alive at the start of the last work loop iteration",
	})
)
