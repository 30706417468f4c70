package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(embedCallsLatencyMs, embedCallsTotal)
}

var embedCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "embedding_calls_latency_ms",
		Help:    "Embedding call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 20000},
	},
	[]string{"provider", "model", "success"},
)

var embedCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "embedding_calls_total",
		Help: "Total embedding calls per provider/model and outcome.",
	},
	[]string{"provider", "model", "success"},
)

func ObserveEmbedCall(provider, model string, latencyMs int, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	embedCallsLatencyMs.WithLabelValues(norm(provider), norm(model), s).Observe(float64(latencyMs))
	embedCallsTotal.WithLabelValues(norm(provider), norm(model), s).Inc()
}
