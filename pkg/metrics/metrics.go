package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "jobs_total",
			Help:      "Jobs processed per topic and outcome",
		},
		[]string{"topic", "result"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "job_duration_seconds",
			Help:      "Job handler duration per topic",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 12, 20,
			},
		},
		[]string{"topic", "result"},
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by outcome",
		},
		[]string{"result"},
	)

	PaymentOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "payment_outcomes_total",
			Help:      "Simulated payment settlements by method and outcome",
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal, JobDuration, WebhookDeliveriesTotal, PaymentOutcomesTotal)
}

// ObserveJob records one processed job.
func ObserveJob(topic, result string, seconds float64) {
	JobsTotal.WithLabelValues(topic, result).Inc()
	JobDuration.WithLabelValues(topic, result).Observe(seconds)
}

// IncWebhookDelivery records one webhook delivery attempt outcome.
func IncWebhookDelivery(result string) {
	WebhookDeliveriesTotal.WithLabelValues(result).Inc()
}

// IncPaymentOutcome records one simulated settlement outcome.
func IncPaymentOutcome(method, status string) {
	PaymentOutcomesTotal.WithLabelValues(method, status).Inc()
}
