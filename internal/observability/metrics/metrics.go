package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeeper_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_validations_total",
		Help: "Barrier validation decisions by action and outcome",
	}, []string{"action", "outcome"})

	credentialsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_credentials_issued_total",
		Help: "Count of guest credentials issued",
	})

	activeGuests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatekeeper_guests_on_site",
		Help: "Number of guests currently on the property (active credentials)",
	})

	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_sweep_expired_total",
		Help: "Pending credentials moved to expired by the monitor",
	})

	overstayNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_overstay_notifications_total",
		Help: "One-shot overstay notifications fired by the monitor",
	})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_notification_failures_total",
		Help: "Notification bridge delivery failures by event kind",
	}, []string{"kind"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveValidation records one barrier decision
func ObserveValidation(action, outcome string) {
	validationsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveIssued increments the issued-credential counter
func ObserveIssued() {
	credentialsIssued.Inc()
}

// GuestEntered increments the on-site gauge
func GuestEntered() {
	activeGuests.Inc()
}

// GuestLeft decrements the on-site gauge
func GuestLeft() {
	activeGuests.Dec()
}

// ObserveSweepExpired adds the number of credentials expired by one sweep
func ObserveSweepExpired(count int64) {
	sweepExpired.Add(float64(count))
}

// ObserveOverstayNotified increments the overstay notification counter
func ObserveOverstayNotified() {
	overstayNotifications.Inc()
}

// ObserveNotificationFailure records a failed delivery on the bridge
func ObserveNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(kind).Inc()
}
