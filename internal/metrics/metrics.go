package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the prometheus instruments shared across components.
type Metrics struct {
	registry *prometheus.Registry

	NLURequests      *prometheus.CounterVec
	NLULatency       *prometheus.HistogramVec
	MessagesSent     *prometheus.CounterVec
	Handoffs         *prometheus.CounterVec
	WebhookDecisions *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

// New registers all instruments under the given namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: reg,
		NLURequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nlu_requests_total",
			Help:      "Dialogflow detectIntent calls by outcome.",
		}, []string{"status"}),
		NLULatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nlu_request_duration_seconds",
			Help:      "Dialogflow detectIntent latency by HTTP status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages by delivery outcome.",
		}, []string{"status"}),
		Handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_handoffs_total",
			Help:      "Agent handoff decisions by protocol.",
		}, []string{"protocol"}),
		WebhookDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dfwebhook_decisions_total",
			Help:      "Fulfillment webhook outcomes.",
		}, []string{"outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Internal errors by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.NLURequests, m.NLULatency, m.MessagesSent, m.Handoffs, m.WebhookDecisions, m.Errors)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
