package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for SOAP calls
const (
	OutcomeOK        = "ok"
	OutcomeFault     = "fault"
	OutcomeError     = "error"
	OutcomeTransport = "transport"
)

// Ticket source labels
const (
	TicketCache  = "cache"
	TicketRemote = "remote"
)

// Metrics tracks outgoing web service calls and WSAA ticket usage.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Tickets         *prometheus.CounterVec
}

// New registers the metrics with reg; a nil reg uses the default registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "afipws_soap_requests_total",
			Help: "Total number of web service calls by outcome",
		}, []string{"service", "operation", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "afipws_soap_request_duration_seconds",
			Help:    "Duration of web service calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "operation"}),
		Tickets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "afipws_wsaa_tickets_total",
			Help: "Access tickets served, by source",
		}, []string{"service", "source"}),
	}
}

// ObserveCall records one call started at start
func (m *Metrics) ObserveCall(service, operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(service, operation, outcome).Inc()
	m.RequestDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// IncrementTicket records a ticket served from source
func (m *Metrics) IncrementTicket(service, source string) {
	if m == nil {
		return
	}
	m.Tickets.WithLabelValues(service, source).Inc()
}
