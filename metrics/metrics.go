package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// capture outcomes
const (
	CaptureCreated  = "created"
	CaptureGated    = "gated"     // another photo was still developing
	CaptureNotReady = "not_ready" // device had no frame
	CaptureFailed   = "failed"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retrocam",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrocam",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrocam",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	captures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrocam",
			Subsystem: "desk",
			Name:      "captures_total",
			Help:      "Capture attempts by outcome.",
		},
		[]string{"result"},
	)

	photosOnDesk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retrocam",
			Subsystem: "desk",
			Name:      "photos",
			Help:      "Photos currently on the desk.",
		},
	)

	exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrocam",
			Subsystem: "export",
			Name:      "renders_total",
			Help:      "Composite renders by status.",
		},
		[]string{"status"},
	)

	exportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "retrocam",
			Subsystem: "export",
			Name:      "render_duration_seconds",
			Help:      "Duration of composite renders.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	imageFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retrocam",
			Subsystem: "export",
			Name:      "image_resolution_failures_total",
			Help:      "Card images skipped because they could not be resolved.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		captures,
		photosOnDesk,
		exports,
		exportDuration,
		imageFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// websocket upgrades pass straight through since they need the raw writer.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordCapture counts a capture attempt by outcome
func RecordCapture(result string) {
	captures.WithLabelValues(result).Inc()
}

// SetPhotoCount tracks how many records are live
func SetPhotoCount(n int) {
	photosOnDesk.Set(float64(n))
}

// RecordExport records one composite render.
func RecordExport(success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "unavailable"
	}
	exports.WithLabelValues(status).Inc()
	exportDuration.Observe(duration.Seconds())
}

func RecordImageFailure() {
	imageFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// routePattern keeps label cardinality bounded by using the matched chi
// pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
