package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(aiCallsTotal, aiTokensTotal) }

var aiCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobpilot_ai_calls_total",
		Help: "AI provider calls, labeled by capability and result.",
	},
	[]string{"capability", "result"}, // 'enrich'|'answers', 'ok'|'error'
)

var aiTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobpilot_ai_tokens_total",
		Help: "Token consumption reported by the provider.",
	},
	[]string{"kind"}, // 'prompt', 'completion'
)

func IncAICall(capability, result string) {
	aiCallsTotal.WithLabelValues(capability, result).Inc()
}

func AddAITokens(prompt, completion int) {
	aiTokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	aiTokensTotal.WithLabelValues("completion").Add(float64(completion))
}
