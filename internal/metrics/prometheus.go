package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "okx_unwind_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	pairsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pairs_submitted_total",
		Help:      "Total number of spot/swap order pairs submitted.",
	})
	pairsFilled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pairs_filled_total",
		Help:      "Total number of order pairs that fully filled.",
	})
	pairsCanceled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pairs_canceled_total",
		Help:      "Total number of order pairs killed by the exchange.",
	})
	divergentFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "divergent_fallbacks_total",
		Help:      "Total number of market-order fallbacks after a divergent fill.",
	})
	sessionsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "sessions_completed_total",
		Help:      "Total number of unwind sessions that reached their target.",
	})
	sessionsAborted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "sessions_aborted_total",
		Help:      "Total number of unwind sessions aborted on a fatal condition.",
	})

	registry.MustRegister(pairsSubmitted, pairsFilled, pairsCanceled, divergentFallbacks, sessionsCompleted, sessionsAborted)

	m := &Metrics{
		PairsSubmitted:     promCounter{pairsSubmitted},
		PairsFilled:        promCounter{pairsFilled},
		PairsCanceled:      promCounter{pairsCanceled},
		DivergentFallbacks: promCounter{divergentFallbacks},
		SessionsCompleted:  promCounter{sessionsCompleted},
		SessionsAborted:    promCounter{sessionsAborted},
	}

	return &Prometheus{
		Metrics:  m,
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
