package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "bookings_created_total", Help: "Total bookings created"})
	BookingsExpired = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "bookings_expired_total", Help: "Total bookings deleted by expiry"})
	DispatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "dispatches_total", Help: "Total dispatch fan-outs"})
	OffersEmitted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "offers_emitted_total", Help: "Total booking offers emitted to mechanic rooms"})
	QuotesSubmitted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "quotes_submitted_total", Help: "Total quotes submitted"})
	QuotesAccepted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "quotes_accepted_total", Help: "Total quotes accepted"})
	QuotesRejected  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "quotes_rejected_total", Help: "Total quotes rejected"})
	WSConnections   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "fleet_dispatch", Name: "ws_connections", Help: "Open websocket connections"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fleet_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleet_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
