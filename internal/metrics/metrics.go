package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "internbot"

// Collector owns the bot's prometheus counters on a private registry.
type Collector struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	handlerErrors prometheus.Counter
	throttled     prometheus.Counter
	notifications *prometheus.CounterVec
	applications  prometheus.Counter
	statusChanges *prometheus.CounterVec
	httpRequests  prometheus.Counter
	httpErrors    prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		handlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Events whose handler failed.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_throttled_total",
			Help:      "Inbound events dropped by the rate limiter.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by outcome.",
		}, []string{"outcome"}),
		applications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_created_total",
			Help:      "Applications created.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_status_changes_total",
			Help:      "Application status changes by target status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}),
		httpErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP requests answered with a 5xx status.",
		}),
	}
	c.registry.MustRegister(c.events, c.handlerErrors, c.throttled, c.notifications, c.applications, c.statusChanges, c.httpRequests, c.httpErrors)
	return c
}

func (c *Collector) IncEvent(kind string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(kind).Inc()
}

func (c *Collector) IncHandlerErrors() {
	if c == nil {
		return
	}
	c.handlerErrors.Inc()
}

func (c *Collector) IncThrottled() {
	if c == nil {
		return
	}
	c.throttled.Inc()
}

// IncNotification records a notification outcome: sent, retried or dropped.
func (c *Collector) IncNotification(outcome string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncApplications() {
	if c == nil {
		return
	}
	c.applications.Inc()
}

func (c *Collector) IncStatusChange(status string) {
	if c == nil {
		return
	}
	c.statusChanges.WithLabelValues(status).Inc()
}

func (c *Collector) IncRequests() {
	if c == nil {
		return
	}
	c.httpRequests.Inc()
}

func (c *Collector) IncHTTPErrors() {
	if c == nil {
		return
	}
	c.httpErrors.Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func NewHandler(c *Collector) http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
