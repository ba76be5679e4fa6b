package metrics

import "github.com/prometheus/client_golang/prometheus"

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var DispatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_dispatches_total",
		Help: "Completed notification dispatches by trigger",
	},
	[]string{"trigger"},
)

var DispatchOutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_dispatch_outcomes_total",
		Help: "Per-recipient delivery outcomes across all dispatches",
	},
	[]string{"result"},
)

var PushSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "push_send_duration_seconds",
		Help:    "Time taken to deliver one push to the transport",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

func Register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DispatchesTotal,
		DispatchOutcomesTotal,
		PushSendDuration,
	)
}
