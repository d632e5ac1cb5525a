package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "aegisshield"
	subsystem = "case_dashboard"
)

// Collector holds all metrics for the case dashboard service
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Working set metrics
	workingSetRecords prometheus.Gauge
	workingSetAge     prometheus.Gauge
	refreshes         *prometheus.CounterVec
	refreshDuration   prometheus.Histogram

	// Cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Kafka metrics
	eventsConsumed *prometheus.CounterVec

	// Real-time metrics
	websocketClients prometheus.Gauge

	// Query metrics
	queryRecords prometheus.Histogram
}

// NewCollector creates a collector on its own registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		workingSetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "working_set_records",
			Help:      "Number of case records currently held in memory",
		}),
		workingSetAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "working_set_fetched_timestamp_seconds",
			Help:      "Unix time of the last successful working set refresh",
		}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "refreshes_total",
			Help:      "Total number of working set refreshes by origin and result",
		}, []string{"origin", "result"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "refresh_duration_seconds",
			Help:      "Working set refresh duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of payload cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of payload cache misses",
		}),
		eventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_consumed_total",
			Help:      "Total number of case events read from Kafka",
		}, []string{"action"}),
		websocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket clients",
		}),
		queryRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_matched_records",
			Help:      "Number of records matched by dashboard queries",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Registry returns the registry the collectors are registered on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRefresh records a working set refresh attempt
func (c *Collector) RecordRefresh(origin string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.refreshes.WithLabelValues(origin, result).Inc()
	c.refreshDuration.Observe(duration.Seconds())
}

// SetWorkingSet records the size and fetch time of the current working set
func (c *Collector) SetWorkingSet(records int, fetchedAt time.Time) {
	c.workingSetRecords.Set(float64(records))
	c.workingSetAge.Set(float64(fetchedAt.Unix()))
}

// RecordCacheLookup records a payload cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

// RecordEvent records a consumed Kafka event and what was done with it
func (c *Collector) RecordEvent(action string) {
	c.eventsConsumed.WithLabelValues(action).Inc()
}

// SetWebSocketClients records the number of connected clients
func (c *Collector) SetWebSocketClients(n int) {
	c.websocketClients.Set(float64(n))
}

// RecordQuery records how many records a query matched
func (c *Collector) RecordQuery(matched int) {
	c.queryRecords.Observe(float64(matched))
}
