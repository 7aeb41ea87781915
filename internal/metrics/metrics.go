// Package metrics содержит метрики Prometheus сервиса.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	cartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of cart operations",
		},
		[]string{"operation", "status"},
	)

	installmentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_installment_operations_total",
			Help: "Total number of installment operations",
		},
		[]string{"operation", "status"},
	)

	overduePayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_installment_overdue_payments_total",
			Help: "Total number of payments reclassified as overdue",
		},
	)
)

// ObserveHTTPRequest учитывает обработанный HTTP-запрос.
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// RecordCartOperation учитывает операцию с корзиной.
func RecordCartOperation(operation string, success bool) {
	cartOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordInstallmentOperation учитывает операцию с рассрочкой.
func RecordInstallmentOperation(operation string, success bool) {
	installmentOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// AddOverduePayments учитывает платежи, ставшие просроченными.
func AddOverduePayments(n int) {
	overduePayments.Add(float64(n))
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
