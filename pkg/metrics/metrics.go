package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments. All record methods
// are no-ops on a nil receiver so tests can pass nil.
type Metrics struct {
	registry             *prometheus.Registry
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	bookingTransitions   *prometheus.CounterVec
	paymentSettlements   *prometheus.CounterVec
	refunds              *prometheus.CounterVec
	webhookEvents        *prometheus.CounterVec
	notificationsSent    *prometheus.CounterVec
	notificationsDropped prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_booking_transitions_total",
			Help: "Applied booking status transitions.",
		}, []string{"from", "to"}),
		paymentSettlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_payment_settlements_total",
			Help: "Payment confirmations by type and outcome.",
		}, []string{"type", "outcome"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_refunds_total",
			Help: "Refund attempts by outcome.",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_webhook_events_total",
			Help: "Gateway webhook events by type and processing status.",
		}, []string{"type", "status"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_notifications_total",
			Help: "Notification deliveries by channel and status.",
		}, []string{"channel", "status"}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.bookingTransitions,
		m.paymentSettlements,
		m.refunds,
		m.webhookEvents,
		m.notificationsSent,
		m.notificationsDropped,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) BookingTransition(from, to string) {
	if m == nil {
		return
	}
	m.bookingTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PaymentSettled(kind, outcome string) {
	if m == nil {
		return
	}
	m.paymentSettlements.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Refund(outcome string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) NotificationSent(channel, status string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notificationsDropped.Inc()
}
