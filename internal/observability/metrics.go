// Package observability holds the Prometheus collectors shared by the server and worker.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	lifecycleCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minds",
		Subsystem: "booking",
		Name:      "transitions_total",
		Help:      "Registration and match lifecycle attempts by operation and outcome.",
	}, []string{"operation", "outcome"})

	notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minds",
		Subsystem: "notifications",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts by channel and resulting status.",
	}, []string{"channel", "status"})

	queueDepthGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "minds",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Jobs waiting in a Redis queue, sampled by the worker.",
	}, []string{"queue"})
)

func init() {
	prometheus.MustRegister(lifecycleCounter, notificationCounter, queueDepthGauge)
}

// RecordTransition counts one lifecycle attempt. outcome is "ok", a rejection kind, or "error".
func RecordTransition(operation, outcome string) {
	lifecycleCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordDelivery counts one notification delivery attempt.
func RecordDelivery(channel, status string) {
	notificationCounter.WithLabelValues(channel, status).Inc()
}

// SetQueueDepth records the sampled length of a queue.
func SetQueueDepth(queue string, depth int64) {
	queueDepthGauge.WithLabelValues(queue).Set(float64(depth))
}
