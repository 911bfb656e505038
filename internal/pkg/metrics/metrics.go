package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namegate_registrations_total",
		Help: "Paid name registrations by settlement path and outcome",
	}, []string{"path", "status"})

	Rejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "namegate_rejects_total",
		Help: "Rejected operations by failure code",
	}, []string{"code"})

	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "namegate_quote_latency_seconds",
		Help:    "Time spent resolving a settlement quote, oracle read included",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "namegate_http_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	ReserveDeposited = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "namegate_reserve_deposited",
		Help: "Reserve-unit tokens deposited in the treasury, in whole tokens",
	})

	CollectedBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "namegate_collected_balance",
		Help: "Operator-owed collected balance per currency, in whole tokens",
	}, []string{"currency"})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "namegate_notifications_dropped_total",
		Help: "Notifications dropped because the delivery buffer was full",
	})
)
