// Package metrics exposes Prometheus counters for registration submissions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes recorded in the result label.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultFull     = "full"
	ResultFailed   = "failed"
	ResultInFlight = "in_flight"
)

// Submissions counts submission attempts by outcome and successful
// registrations per event.
type Submissions struct {
	Total         *prometheus.CounterVec
	Registrations *prometheus.CounterVec
}

// New creates the counters and registers them with reg.  A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Submissions {
	m := &Submissions{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_registration_submissions_total",
			Help: "Registration submissions by result.",
		}, []string{"result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_registration_event_registrations_total",
			Help: "Successful registrations per event.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.Total, m.Registrations)
	}
	return m
}

// Observe records one submission outcome.  It is safe on a nil receiver.
func (m *Submissions) Observe(result string) {
	if m == nil {
		return
	}
	m.Total.WithLabelValues(result).Inc()
}

// Registered records a successful registration for each named event.
func (m *Submissions) Registered(events ...string) {
	if m == nil {
		return
	}
	for _, name := range events {
		m.Registrations.WithLabelValues(name).Inc()
	}
}
