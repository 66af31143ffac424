package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindease_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindease_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindease_reservations_total",
			Help: "Slot reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindease_booking_transitions_total",
			Help: "Booking status transitions by target status",
		},
		[]string{"status"},
	)

	PaymentCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindease_payment_callbacks_total",
			Help: "Payment callbacks by result and effect",
		},
		[]string{"result", "effect"},
	)

	OrphanedPaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindease_orphaned_payments_total",
			Help: "Successful payments that arrived after the hold was released",
		},
	)

	HoldsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindease_holds_expired_total",
			Help: "Holds expired by the sweep",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordReservation counts reserve outcomes: held, conflict, invalid or error.
func RecordReservation(outcome string) {
	ReservationsTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(status string) {
	BookingTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordPaymentCallback counts callbacks: effect is applied, duplicate or stale.
func RecordPaymentCallback(result, effect string) {
	PaymentCallbacksTotal.WithLabelValues(result, effect).Inc()
}

func RecordOrphanedPayment() {
	OrphanedPaymentsTotal.Inc()
}

func RecordHoldsExpired(n int) {
	HoldsExpiredTotal.Add(float64(n))
}
