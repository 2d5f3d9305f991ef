package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal           *prometheus.CounterVec
	queryModeTotal       *prometheus.CounterVec
	queryRetrievalHits   *prometheus.CounterVec
	queryNoContextTotal  *prometheus.CounterVec
	queryRetrievedChunks *prometheus.HistogramVec
	queryDuration        *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "khub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "khub",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total answered query requests.",
		},
		[]string{"service"},
	)
	queryModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "mode_requests_total",
			Help:      "Total answered query requests by answer mode.",
		},
		[]string{"service", "mode"},
	)
	queryRetrievalHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "retrieval_hit_total",
			Help:      "Total query requests with at least one cited source.",
		},
		[]string{"service"},
	)
	queryNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total query requests answered without any sources.",
		},
		[]string{"service"},
	)
	queryRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of cited sources per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "khub",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryModeTotal,
		queryRetrievalHits,
		queryNoContextTotal,
		queryRetrievedChunks,
		queryDuration,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		queryTotal:           queryTotal,
		queryModeTotal:       queryModeTotal,
		queryRetrievalHits:   queryRetrievalHits,
		queryNoContextTotal:  queryNoContextTotal,
		queryRetrievedChunks: queryRetrievedChunks,
		queryDuration:        queryDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/ingest-jobs/"):
		return "/api/ingest-jobs/{job_id}"
	default:
		return path
	}
}

// RecordQuery tracks one answered query. Mode is "retrieval" or
// "summary"; sourceCount is the number of cited sources.
func (m *HTTPServerMetrics) RecordQuery(service, mode string, sourceCount int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.queryTotal.WithLabelValues(service).Inc()
	m.queryModeTotal.WithLabelValues(service, mode).Inc()
	m.queryRetrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.queryRetrievalHits.WithLabelValues(service).Inc()
		return
	}
	m.queryNoContextTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
