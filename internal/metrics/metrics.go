package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_studio"

var (
	// workflowRuns tracks finished workflow runs
	workflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total workflow runs by workflow and status",
		},
		[]string{"workflow", "status"},
	)

	workflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Workflow run duration by workflow",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"workflow"},
	)

	workflowRevisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_revisions_total",
			Help:      "Total revision passes by workflow",
		},
		[]string{"workflow"},
	)

	// llmTokens tracks tokens reported by the providers
	llmTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens by model and kind (prompt, completion)",
		},
		[]string{"model", "kind"},
	)

	llmCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Estimated LLM spend in USD by model",
		},
		[]string{"model"},
	)

	upstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to search, media and transcript services",
		},
		[]string{"service"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordWorkflowRun counts a finished run and observes its duration.
func RecordWorkflowRun(workflow, status string, d time.Duration) {
	workflowRuns.WithLabelValues(workflow, status).Inc()
	workflowDuration.WithLabelValues(workflow).Observe(d.Seconds())
}

// RecordRevision counts one revision pass.
func RecordRevision(workflow string) {
	workflowRevisions.WithLabelValues(workflow).Inc()
}

// RecordLLMUsage adds the tokens and cost of one model call.
func RecordLLMUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	if promptTokens > 0 {
		llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if costUSD > 0 {
		llmCost.WithLabelValues(model).Add(costUSD)
	}
}

// RecordUpstreamError counts a failed call to an external service.
func RecordUpstreamError(service string) {
	upstreamErrors.WithLabelValues(service).Inc()
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(route string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
