package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_job_runs_total",
			Help: "Total number of scheduled job runs by job and status",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starkindexor_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"job"},
	)

	SessionsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_window_sessions_updated_total",
			Help: "Total number of game sessions whose window state changed",
		},
	)

	AgentsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_scoring_agents_total",
			Help: "Total number of agent score calculations by status",
		},
		[]string{"status"},
	)

	ScoringCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_scoring_call_failures_total",
			Help: "Total number of contract calls that counted as zero during scoring",
		},
		[]string{"entrypoint"},
	)
)

func jobRunLog(job string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	JobRuns.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func agentScoredInc(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	AgentsScored.WithLabelValues(status).Inc()
}

func scoringCallFailureInc(entrypoint string) {
	ScoringCallFailures.WithLabelValues(entrypoint).Inc()
}
