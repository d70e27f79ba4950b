package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the connector.
type Metrics struct {
	ConnectAttempts  prometheus.Counter
	ConnectFailures  prometheus.Counter
	Disconnects      prometheus.Counter
	ChainSwitches    *prometheus.CounterVec
	UserOpsSubmitted *prometheus.CounterVec
}

// New creates the connector metrics and registers them with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passlet_connect_attempts_total",
			Help: "Total number of connector connect attempts.",
		}),
		ConnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passlet_connect_failures_total",
			Help: "Total number of failed connector connect attempts.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passlet_disconnects_total",
			Help: "Total number of connector disconnects.",
		}),
		ChainSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passlet_chain_switches_total",
			Help: "Total number of chain switches by target chain.",
		}, []string{"chain_id"}),
		UserOpsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passlet_user_operations_submitted_total",
			Help: "Total number of user operations submitted by chain.",
		}, []string{"chain_id"}),
	}

	reg.MustRegister(
		m.ConnectAttempts,
		m.ConnectFailures,
		m.Disconnects,
		m.ChainSwitches,
		m.UserOpsSubmitted,
	)

	return m
}
