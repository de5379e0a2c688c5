// package metrics exposes Prometheus gauges and counters for the selected program and its lifecycle operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/onair/internal/models"
)

var statuses = []models.Status{models.StatusReserved, models.StatusTest, models.StatusOnAir, models.StatusEnd}

// Metrics holds Prometheus counters and gauges for the broadcast controller.
type Metrics struct {
	registry       *prometheus.Registry
	viewers        prometheus.Gauge
	comments       prometheus.Gauge
	adPoints       prometheus.Gauge
	giftPoints     prometheus.Gauge
	status         *prometheus.GaugeVec
	secondsToEnd   prometheus.Gauge
	operations     *prometheus.CounterVec
	autoExtensions prometheus.Counter
	errorsTotal    prometheus.Counter
	requestsTotal  prometheus.Counter
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	viewers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "onair_viewers",
		Help: "Cumulative viewer count of the selected program",
	})
	comments := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "onair_comments",
		Help: "Cumulative comment count of the selected program",
	})
	adPoints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "onair_ad_points",
		Help: "Total ad points of the selected program",
	})
	giftPoints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "onair_gift_points",
		Help: "Total gift points of the selected program",
	})
	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "onair_program_status",
		Help: "1 for the current status of the selected program, 0 otherwise",
	}, []string{"status"})
	secondsToEnd := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "onair_seconds_until_end",
		Help: "Seconds until the scheduled end on the corrected server clock",
	})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onair_operations_total",
		Help: "Lifecycle operations by action and result",
	}, []string{"action", "result"})
	autoExtensions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onair_auto_extensions_total",
		Help: "Total number of successful automatic extensions",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onair_errors_total",
		Help: "Total number of failed lifecycle operations and error responses",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onair_http_requests_total",
		Help: "Total number of HTTP requests received by the metrics server",
	})

	registry.MustRegister(
		viewers,
		comments,
		adPoints,
		giftPoints,
		status,
		secondsToEnd,
		operations,
		autoExtensions,
		errorsTotal,
		requestsTotal,
	)

	return &Metrics{
		registry:       registry,
		viewers:        viewers,
		comments:       comments,
		adPoints:       adPoints,
		giftPoints:     giftPoints,
		status:         status,
		secondsToEnd:   secondsToEnd,
		operations:     operations,
		autoExtensions: autoExtensions,
		errorsTotal:    errorsTotal,
		requestsTotal:  requestsTotal,
	}
}

// ObserveState mirrors a committed state into the gauges. It has the shape of a store reactor.
func (m *Metrics) ObserveState(_ *models.ProgramState, next models.ProgramState) {
	m.viewers.Set(float64(next.Viewers))
	m.comments.Set(float64(next.Comments))
	m.adPoints.Set(float64(next.AdPoint))
	m.giftPoints.Set(float64(next.GiftPoint))

	for _, s := range statuses {
		v := 0.0
		if s == next.Status {
			v = 1
		}
		m.status.WithLabelValues(string(s)).Set(v)
	}
}

// OperationCompleted counts a lifecycle outcome.
func (m *Metrics) OperationCompleted(action models.Action, _ models.ProgramState, err error) {
	result := "success"
	if err != nil {
		result = "error"
		m.errorsTotal.Inc()
	}
	m.operations.WithLabelValues(string(action), result).Inc()

	if err == nil && action == models.ActionAutoExtend {
		m.autoExtensions.Inc()
	}
}

// SetSecondsUntilEnd sets the remaining time gauge.
func (m *Metrics) SetSecondsUntilEnd(seconds int64) {
	m.secondsToEnd.Set(float64(seconds))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh time-dependent gauges.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Middleware counts requests and error responses.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsTotal.Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= 400 {
			m.errorsTotal.Inc()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
