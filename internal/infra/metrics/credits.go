package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		creditsDelta,
		securityEventsTotal,
	)
}

var (
	creditsDelta = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_delta_total",
			Help: "Sum of credit deltas applied to ledgers, labeled by entry type and sign.",
		},
		[]string{"type", "sign"},
	)

	securityEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Security/fraud-signal events by type.",
		},
		[]string{"type"},
	)
)

func AddCredits(entryType string, delta int64) {
	sign := "credit"
	if delta < 0 {
		sign = "debit"
		delta = -delta
	}
	creditsDelta.WithLabelValues(norm(entryType), sign).Add(float64(delta))
}

func IncSecurityEvent(eventType string) {
	securityEventsTotal.WithLabelValues(norm(eventType)).Inc()
}
