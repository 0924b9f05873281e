package telemetry

import "github.com/prometheus/client_golang/prometheus"

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "openintent",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

var IntentMutationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "intent",
		Name:      "mutations_total",
		Help:      "Total number of intent mutations by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

var EventsAppendedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "event",
		Name:      "appended_total",
		Help:      "Total number of events appended to intent logs, by event type.",
	},
	[]string{"event_type"},
)

var EventSubscribersGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "openintent",
		Subsystem: "event",
		Name:      "subscribers",
		Help:      "Current number of live event stream subscriptions.",
	},
)

var EventBackpressureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "event",
		Name:      "backpressure_total",
		Help:      "Total number of backpressure actions taken on subscriber queues, by policy and action.",
	},
	[]string{"policy", "action"},
)

var LeaseAcquisitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "lease",
		Name:      "acquisitions_total",
		Help:      "Total number of lease acquisition attempts by outcome.",
	},
	[]string{"outcome"},
)

var LeasesExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "lease",
		Name:      "expired_total",
		Help:      "Total number of leases marked EXPIRED by the sweeper.",
	},
)

var PortfolioCompletionGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "openintent",
		Subsystem: "portfolio",
		Name:      "completion_percentage",
		Help:      "Most recently computed completion percentage per portfolio.",
	},
	[]string{"portfolio_id"},
)

var RetryScheduledTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "retry",
		Name:      "scheduled_total",
		Help:      "Total number of RETRY_SCHEDULED events emitted, by strategy.",
	},
	[]string{"strategy"},
)

var RetryExhaustedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "retry",
		Name:      "exhausted_total",
		Help:      "Total number of intents transitioned to FAILED by the retry subsystem.",
	},
)

var ToolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "openintent",
		Subsystem: "tool",
		Name:      "calls_total",
		Help:      "Total number of tool broker invocations by tool name and result status.",
	},
	[]string{"tool_name", "status"},
)

var ToolCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "openintent",
		Subsystem: "tool",
		Name:      "call_duration_seconds",
		Help:      "Tool broker invocation duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"tool_name"},
)

// All returns the OpenIntent-specific metrics for registration with the
// process registry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		IntentMutationsTotal,
		EventsAppendedTotal,
		EventSubscribersGauge,
		EventBackpressureTotal,
		LeaseAcquisitionsTotal,
		LeasesExpiredTotal,
		PortfolioCompletionGauge,
		RetryScheduledTotal,
		RetryExhaustedTotal,
		ToolCallsTotal,
		ToolCallDuration,
	}
}
