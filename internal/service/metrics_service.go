package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// MetricsService encapsulates Prometheus instrumentation for both bots.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	eventsFetched   *prometheus.CounterVec
	closedShifts    prometheus.Counter
	credentials     *prometheus.CounterVec
	chatPosts       *prometheus.CounterVec
	jobFailures     *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	eventsFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_event_fetches_total",
		Help: "Calendar event retrievals by outcome",
	}, []string{"source", "outcome"})

	closedShifts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "closed_shifts_detected_total",
		Help: "Events matched by the closed shift rule",
	})

	credentials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_credential_acquisitions_total",
		Help: "Credential acquisitions by method",
	}, []string{"method", "outcome"})

	chatPosts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_posts_total",
		Help: "Chat messages posted by outcome",
	}, []string{"outcome"})

	jobFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "background_job_failures_total",
		Help: "Background jobs that returned an error",
	}, []string{"queue", "type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, eventsFetched, closedShifts, credentials, chatPosts, jobFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		eventsFetched:   eventsFetched,
		closedShifts:    closedShifts,
		credentials:     credentials,
		chatPosts:       chatPosts,
		jobFailures:     jobFailures,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEventFetch counts a retrieval from the provider or the calendar-bot.
func (m *MetricsService) RecordEventFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.eventsFetched.WithLabelValues(source, outcome).Inc()
}

// RecordClosedShifts adds n matched events.
func (m *MetricsService) RecordClosedShifts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.closedShifts.Add(float64(n))
}

// RecordCredential counts how the calendar credential was obtained.
func (m *MetricsService) RecordCredential(method, outcome string) {
	if m == nil {
		return
	}
	m.credentials.WithLabelValues(method, outcome).Inc()
}

// RecordChatPost counts chat.postMessage attempts.
func (m *MetricsService) RecordChatPost(outcome string) {
	if m == nil {
		return
	}
	m.chatPosts.WithLabelValues(outcome).Inc()
}

// RecordJobFailure counts a failed background job.
func (m *MetricsService) RecordJobFailure(queue, jobType string) {
	if m == nil {
		return
	}
	m.jobFailures.WithLabelValues(queue, jobType).Inc()
}
