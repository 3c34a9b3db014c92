package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)

// Metrics exposes the Prometheus instruments for the referral core. All
// observe methods are nil-safe so tests can run without a registry.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	signups           *prometheus.CounterVec
	paymentsCompleted prometheus.Counter
	paymentsRefunded  prometheus.Counter
	earningsCreated   *prometheus.CounterVec
	earningsPaid      prometheus.Counter
	earningsCancelled prometheus.Counter
}

// NewMetrics registers and returns the Prometheus instruments.
func NewMetrics() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upline_http_requests_total",
		Help: "Counts HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upline_http_duration_seconds",
		Help:    "HTTP request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	signups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upline_signups_total",
		Help: "Counts member signups by whether a recruiter resolved.",
	}, []string{"recruited"})

	paymentsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upline_payments_completed_total",
		Help: "Counts completed-payment events applied, redeliveries included.",
	})

	paymentsRefunded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upline_payments_refunded_total",
		Help: "Counts payments transitioned to refunded.",
	})

	earningsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upline_earnings_created_total",
		Help: "Counts earning rows written per override level.",
	}, []string{"level"})

	earningsPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upline_earnings_paid_total",
		Help: "Counts earnings transitioned to paid.",
	})

	earningsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upline_earnings_cancelled_total",
		Help: "Counts pending earnings cancelled by refunds.",
	})

	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		signups,
		paymentsCompleted,
		paymentsRefunded,
		earningsCreated,
		earningsPaid,
		earningsCancelled,
	)

	return &Metrics{
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
		signups:           signups,
		paymentsCompleted: paymentsCompleted,
		paymentsRefunded:  paymentsRefunded,
		earningsCreated:   earningsCreated,
		earningsPaid:      earningsPaid,
		earningsCancelled: earningsCancelled,
	}
}

// ObserveHTTPRequest records one request and its latency.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSignup records a completed signup.
func (m *Metrics) ObserveSignup(recruited bool) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(strconv.FormatBool(recruited)).Inc()
}

// ObservePaymentCompleted records one applied completed-payment event.
func (m *Metrics) ObservePaymentCompleted() {
	if m == nil {
		return
	}
	m.paymentsCompleted.Inc()
}

// ObserveRefund records a refund and the pending earnings it cancelled.
func (m *Metrics) ObserveRefund(cancelled int64) {
	if m == nil {
		return
	}
	m.paymentsRefunded.Inc()
	m.earningsCancelled.Add(float64(cancelled))
}

// ObserveEarningCreated records a newly written earning row.
func (m *Metrics) ObserveEarningCreated(level int) {
	if m == nil {
		return
	}
	m.earningsCreated.WithLabelValues(strconv.Itoa(level)).Inc()
}

// ObserveEarningPaid records a payout transition.
func (m *Metrics) ObserveEarningPaid() {
	if m == nil {
		return
	}
	m.earningsPaid.Inc()
}
