// Package observability provides prometheus metrics for the translation shim.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors. A nil *Metrics is valid and makes
// every method a no-op, so callers never need to branch on whether metrics
// are enabled.
type Metrics struct {
	translations     *prometheus.CounterVec
	providerDuration prometheus.Histogram
	tokens           *prometheus.CounterVec
}

// NewMetrics registers the shim's collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		translations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatlibre_translations_total",
			Help: "Translation requests by outcome and source mode.",
		}, []string{"outcome", "mode"}),
		providerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatlibre_provider_request_duration_seconds",
			Help:    "Round-trip time of chat-completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		tokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatlibre_provider_tokens_total",
			Help: "Tokens spent on chat-completion calls by kind.",
		}, []string{"kind"}),
	}
}

// RecordTranslation counts one finished translation attempt.
func (m *Metrics) RecordTranslation(outcome, mode string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome, mode).Inc()
}

// ObserveProviderDuration records one provider round-trip.
func (m *Metrics) ObserveProviderDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.providerDuration.Observe(d.Seconds())
}

// AddTokens accumulates token spend reported by the provider.
func (m *Metrics) AddTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues("prompt").Add(float64(prompt))
	m.tokens.WithLabelValues("completion").Add(float64(completion))
}
