package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	dbQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// Business metrics
	leadsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_submitted_total",
			Help: "Total number of leads stored from form submissions",
		},
	)

	leadsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_rejected_total",
			Help: "Total number of form submissions rejected by validation",
		},
	)

	leadsHoneypotTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_honeypot_total",
			Help: "Total number of submissions silently discarded by the honeypot",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of lead notification attempts",
		},
		[]string{"channel", "status"}, // channel: telegram, whatsapp; status: success, failure, skipped
	)

	adminLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_logins_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"status"}, // success, failure
	)
)

// Middleware returns an echo middleware that records request metrics
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip metrics endpoint itself
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			method := c.Request().Method
			// c.Path() is the route pattern, keeping label cardinality bounded
			endpoint := c.Path()
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
			httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// RecordLeadSubmitted records a stored lead
func RecordLeadSubmitted() {
	leadsSubmittedTotal.Inc()
}

// RecordLeadRejected records a submission rejected by validation
func RecordLeadRejected() {
	leadsRejectedTotal.Inc()
}

// RecordHoneypot records a silently discarded bot submission
func RecordHoneypot() {
	leadsHoneypotTotal.Inc()
}

// RecordNotification records a notification attempt per channel
func RecordNotification(channel, status string) {
	notificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordAdminLogin records an admin login attempt
func RecordAdminLogin(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	adminLoginsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	dbQueriesTotal.WithLabelValues(operation, status).Inc()
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnections updates database connection metrics
func UpdateDBConnections(active, idle int) {
	dbConnectionsActive.Set(float64(active))
	dbConnectionsIdle.Set(float64(idle))
}
