// Package metrics holds the Prometheus collectors of the agent service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RouteTotal counts routing decisions by agent and tier.
	RouteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_route_total",
			Help: "Routing decisions by agent and router tier",
		},
		[]string{"agent", "tier"},
	)

	// LoopIterations observes the number of iterations per loop run.
	LoopIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_loop_iterations",
			Help:    "Iterations per agent loop run",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"agent"},
	)

	// ToolDecisions counts tool execution records by tool and status.
	ToolDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_decisions_total",
			Help: "Tool execution records by tool and status",
		},
		[]string{"tool", "status"},
	)

	// ToolCallDuration observes integration call latency.
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_tool_call_duration_seconds",
			Help:    "Integration tool call duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool", "outcome"},
	)

	// RetrievedDocuments observes the number of documents kept after capping.
	RetrievedDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_retrieved_documents",
			Help:    "Documents injected into the prompt per request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	// Handoffs counts followed handoffs by source and target agent.
	Handoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_handoffs_total",
			Help: "Followed single-hop handoffs",
		},
		[]string{"from", "to"},
	)

	// ChatRequests counts chat requests by outcome.
	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_chat_requests_total",
			Help: "Chat requests by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RouteTotal,
		LoopIterations,
		ToolDecisions,
		ToolCallDuration,
		RetrievedDocuments,
		Handoffs,
		ChatRequests,
	)
}
