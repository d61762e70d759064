// Package metrics 汇总订单流水线的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderstream"

var (
	OrdersPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_published_total",
		Help:      "Orders published to the order topic, by result.",
	}, []string{"result"})

	OrdersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_processed_total",
		Help:      "Orders that left the consumer, by outcome.",
	}, []string{"outcome"})

	OrderRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_retries_total",
		Help:      "Failed processing attempts that were retried.",
	})

	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_publish_failures_total",
		Help:      "Best-effort publishes that failed, by sink.",
	}, []string{"sink"})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_processing_seconds",
		Help:      "Time from delivery to outcome, retries included.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// sink label values
const (
	SinkDeadLetter   = "dead_letter"
	SinkNotification = "notification"
	SinkRetry        = "retry"
)
