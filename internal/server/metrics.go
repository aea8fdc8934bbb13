package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts orchestration outcomes. Detached summary tasks have
// no caller to report to, so these counters and the logs are their
// only observable surface.
type Metrics struct {
	SearchesTotal     prometheus.Counter
	ProviderFallbacks prometheus.Counter
	SummarySuccesses  prometheus.Counter
	SummaryFailures   prometheus.Counter
	RecordsRepaired   prometheus.Counter
}

func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchrelay_searches_total",
			Help: "Search requests accepted.",
		}),
		ProviderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchrelay_provider_fallbacks_total",
			Help: "Searches answered from mock data after a provider failure.",
		}),
		SummarySuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchrelay_summary_successes_total",
			Help: "Detached summary tasks that stored an ai_response.",
		}),
		SummaryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchrelay_summary_failures_total",
			Help: "Detached summary tasks that failed or could not store.",
		}),
		RecordsRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchrelay_records_repaired_total",
			Help: "Stored records whose missing components were restored.",
		}),
	}
	reg.MustRegister(m.SearchesTotal, m.ProviderFallbacks, m.SummarySuccesses, m.SummaryFailures, m.RecordsRepaired)
	return m
}
