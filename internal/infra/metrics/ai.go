package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCallsLatency,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "ok"},
	)
)

func AddAITokens(provider, model string, in, out int) {
	aiTokensIn.WithLabelValues(norm(provider), norm(model)).Add(float64(in))
	aiTokensOut.WithLabelValues(norm(provider), norm(model)).Add(float64(out))
}

func ObserveAICall(provider, model string, d time.Duration, ok bool) {
	aiCallsLatency.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(ok)).
		Observe(float64(d.Milliseconds()))
}
