// Package metrics exposes Prometheus counters for the swipe, match and
// notification paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services depend on. Nop satisfies it for tests.
type Recorder interface {
	RecordSwipe(side, direction string)
	RecordQuotaExceeded(side string)
	RecordTooFast()
	RecordMatchCreated()
	RecordDetectionError()
	RecordMessageSent()
	RecordNotification(notificationType string)
	RecordEventPublish(eventType string, err error)
	RecordSuggestions(source string)
	RecordHTTPRequest(method string, status int, duration time.Duration)
}

type Collector struct {
	swipes          *prometheus.CounterVec
	quotaExceeded   *prometheus.CounterVec
	tooFast         prometheus.Counter
	matchesCreated  prometheus.Counter
	detectionErrors prometheus.Counter
	messagesSent    prometheus.Counter
	notifications   *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	suggestions     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_swipes_total",
			Help: "Recorded swipe decisions by side and direction.",
		}, []string{"side", "direction"}),
		quotaExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_quota_exceeded_total",
			Help: "Swipes rejected for an exhausted quota.",
		}, []string{"side"}),
		tooFast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobswipe_swipes_too_fast_total",
			Help: "Swipes rejected by the burst limiter.",
		}),
		matchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobswipe_matches_created_total",
			Help: "Matches created.",
		}),
		detectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobswipe_match_detection_errors_total",
			Help: "Match detection failures treated as no match.",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobswipe_messages_sent_total",
			Help: "Chat messages stored.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_notifications_written_total",
			Help: "Notifications written by type.",
		}, []string{"type"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_events_published_total",
			Help: "Domain events published by type and result.",
		}, []string{"type", "result"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_suggestions_total",
			Help: "Message suggestion responses by source.",
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobswipe_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobswipe_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.swipes,
		c.quotaExceeded,
		c.tooFast,
		c.matchesCreated,
		c.detectionErrors,
		c.messagesSent,
		c.notifications,
		c.eventsPublished,
		c.suggestions,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordSwipe(side, direction string) {
	c.swipes.WithLabelValues(side, direction).Inc()
}

func (c *Collector) RecordQuotaExceeded(side string) {
	c.quotaExceeded.WithLabelValues(side).Inc()
}

func (c *Collector) RecordTooFast() {
	c.tooFast.Inc()
}

func (c *Collector) RecordMatchCreated() {
	c.matchesCreated.Inc()
}

func (c *Collector) RecordDetectionError() {
	c.detectionErrors.Inc()
}

func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

func (c *Collector) RecordNotification(notificationType string) {
	c.notifications.WithLabelValues(notificationType).Inc()
}

func (c *Collector) RecordEventPublish(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.eventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordSuggestions counts where a suggestion list came from: ai, cache,
// static or empty.
func (c *Collector) RecordSuggestions(source string) {
	c.suggestions.WithLabelValues(source).Inc()
}

func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler serves the scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) RecordSwipe(string, string)                   {}
func (Nop) RecordQuotaExceeded(string)                   {}
func (Nop) RecordTooFast()                               {}
func (Nop) RecordMatchCreated()                          {}
func (Nop) RecordDetectionError()                        {}
func (Nop) RecordMessageSent()                           {}
func (Nop) RecordNotification(string)                    {}
func (Nop) RecordEventPublish(string, error)             {}
func (Nop) RecordSuggestions(string)                     {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
