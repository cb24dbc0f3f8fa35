package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the API client and session manager
type Metrics struct {
	// Backend request metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Session refresh metrics
	Refreshes       *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	AuthRetries     *prometheus.CounterVec

	// Session lifecycle metrics
	Logins     *prometheus.CounterVec
	AuthChecks *prometheus.CounterVec

	// Upload metrics
	Uploads     *prometheus.CounterVec
	UploadBytes *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teacherpanel_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_request_errors_total",
				Help: "Total number of failed backend API requests",
			},
			[]string{"method", "error_type"},
		),

		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_token_refreshes_total",
				Help: "Total number of refresh exchanges by outcome",
			},
			[]string{"outcome"},
		),
		RefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teacherpanel_token_refresh_duration_seconds",
				Help:    "Refresh exchange duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{},
		),
		AuthRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_auth_retries_total",
				Help: "Total number of requests retried after a 401",
			},
			[]string{"success"},
		),

		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"success"},
		),
		AuthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_auth_checks_total",
				Help: "Total number of session validations",
			},
			[]string{"authenticated"},
		),

		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_uploads_total",
				Help: "Total number of upload requests",
			},
			[]string{"kind", "success"},
		),
		UploadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_upload_bytes_total",
				Help: "Total number of bytes sent in upload bodies",
			},
			[]string{"kind"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teacherpanel_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// ObserveRequest records one completed backend round trip. status is 0 when
// no response was received.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRequestError records a failed request by error type
func (m *Metrics) ObserveRequestError(method, errorType string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// ObserveRefresh records a refresh exchange outcome (success, failure,
// skipped, interrupted)
func (m *Metrics) ObserveRefresh(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.RefreshDuration.WithLabelValues().Observe(duration.Seconds())
	}
}

// ObserveAuthRetry records the result of a request replayed after a 401
func (m *Metrics) ObserveAuthRetry(success bool) {
	if m == nil {
		return
	}
	m.AuthRetries.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveLogin records a login attempt
func (m *Metrics) ObserveLogin(success bool) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveAuthCheck records a session validation result
func (m *Metrics) ObserveAuthCheck(authenticated bool) {
	if m == nil {
		return
	}
	m.AuthChecks.WithLabelValues(strconv.FormatBool(authenticated)).Inc()
}

// ObserveUpload records an upload attempt and the bytes streamed
func (m *Metrics) ObserveUpload(kind string, success bool, bytes int64) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
	if bytes > 0 {
		m.UploadBytes.WithLabelValues(kind).Add(float64(bytes))
	}
}

// ObserveError records an error by its structured error code
func (m *Metrics) ObserveError(code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}
