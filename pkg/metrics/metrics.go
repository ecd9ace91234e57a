package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the storefront collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	stockDecrements *prometheus.CounterVec
	contactMessages *prometheus.CounterVec
}

// New registers the storefront metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by path and outcome.",
	}, []string{"path", "outcome"})
	stockDecrements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Per-product stock decrements triggered by approved payments.",
	}, []string{"outcome"})
	contactMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_messages_total",
		Help: "Contact form submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(requestDuration, checkouts, stockDecrements, contactMessages)
	return &Metrics{
		requestDuration: requestDuration,
		checkouts:       checkouts,
		stockDecrements: stockDecrements,
		contactMessages: contactMessages,
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func (m *Metrics) IncCheckout(path, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncStockDecrement(outcome string) {
	if m == nil || m.stockDecrements == nil {
		return
	}
	m.stockDecrements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncContact(outcome string) {
	if m == nil || m.contactMessages == nil {
		return
	}
	m.contactMessages.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
