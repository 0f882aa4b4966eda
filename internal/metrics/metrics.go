package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed",
		},
		[]string{"payment_method"},
	)

	paymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Total number of gateway IPN callbacks by outcome",
		},
		[]string{"gateway", "outcome"},
	)

	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"from", "to"},
	)

	stockRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_rejections_total",
			Help: "Total number of requests rejected for insufficient stock",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ordersPlacedTotal)
	prometheus.MustRegister(paymentCallbacksTotal)
	prometheus.MustRegister(orderTransitionsTotal)
	prometheus.MustRegister(stockRejectionsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordOrderPlaced(method string) {
	ordersPlacedTotal.WithLabelValues(method).Inc()
}

func RecordPaymentCallback(gateway, outcome string) {
	paymentCallbacksTotal.WithLabelValues(gateway, outcome).Inc()
}

func RecordTransition(from, to string) {
	orderTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordStockRejection() {
	stockRejectionsTotal.Inc()
}
