// Package metrics defines the Prometheus collectors for research runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_ad_searches_total",
			Help: "Ad library searches by outcome",
		},
		[]string{"outcome"},
	)

	AdClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_ad_classifications_total",
			Help: "Ad intelligence classifications by status",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_stage_duration_seconds",
			Help:    "Duration of workflow stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_state_transitions_total",
			Help: "Workflow state transitions by destination state",
		},
		[]string{"to"},
	)

	TargetsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_targets_finished_total",
			Help: "Targets that reached a terminal state",
		},
		[]string{"state"},
	)

	TargetsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_targets_active",
			Help: "Targets currently being researched",
		},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_llm_requests_total",
			Help: "LLM requests by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_llm_cost_usd_total",
			Help: "Estimated LLM spend in USD by purpose",
		},
		[]string{"purpose"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
