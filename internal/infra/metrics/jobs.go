package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsProcessedTotal, jobTransitionsTotal, jobStageFailuresTotal, batchDuration)
}

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobpilot_jobs_processed_total",
		Help: "Jobs attempted by enrichment sweeps, labeled by outcome.",
	},
	[]string{"outcome"}, // 'enriched', 'answers_generated', 'skipped', 'failed'
)

var jobTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobpilot_job_transitions_total",
		Help: "Lifecycle transitions, labeled by target status.",
	},
	[]string{"to"},
)

var jobStageFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobpilot_job_stage_failures_total",
		Help: "Per-job stage failures, labeled by stage.",
	},
	[]string{"stage"}, // 'enrichment', 'answer_generation', 'apply'
)

var batchDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "jobpilot_batch_duration_seconds",
		Help:    "Wall-clock duration of enrichment sweeps.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	},
)

func AddJobOutcome(outcome string, n int) {
	jobsProcessedTotal.WithLabelValues(outcome).Add(float64(n))
}

func IncTransition(to string) {
	jobTransitionsTotal.WithLabelValues(to).Inc()
}

func IncStageFailure(stage string) {
	jobStageFailuresTotal.WithLabelValues(stage).Inc()
}

func ObserveBatchDuration(seconds float64) {
	batchDuration.Observe(seconds)
}
