package authcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector gathers Prometheus counters for authentication outcomes.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registrations  prometheus.Counter
	verifications  prometheus.Counter
	logins         *prometheus.CounterVec
	federatedLogin *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_registrations_total",
			Help: "Total successful local registrations",
		}),
		verifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_email_verifications_total",
			Help: "Total successful email verifications",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Local login attempts by result",
		}, []string{"result"}),
		federatedLogin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_federated_logins_total",
			Help: "Federated login attempts by provider and result",
		}, []string{"provider", "result"}),
	}
	reg.MustRegister(c.registrations, c.verifications, c.logins, c.federatedLogin)
	return c
}

func (c *Collector) RecordRegistration() {
	if c == nil {
		return
	}
	c.registrations.Inc()
}

func (c *Collector) RecordVerification() {
	if c == nil {
		return
	}
	c.verifications.Inc()
}

func (c *Collector) RecordLogin(result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordFederatedLogin(provider, result string) {
	if c == nil {
		return
	}
	c.federatedLogin.WithLabelValues(provider, result).Inc()
}
