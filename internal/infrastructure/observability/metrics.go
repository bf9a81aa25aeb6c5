package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "snapgram-sync/pkg/errors"
)

// Collector holds all Prometheus metrics for the sync layer. It satisfies
// the recorder interfaces of the query cache, the mutation coordinator, the
// feed reader and the backend decorators.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Query cache metrics
	CacheReads    *prometheus.CounterVec
	QueryFetches  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Mutation metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	Compensations    *prometheus.CounterVec

	// Feed metrics
	FeedPages prometheus.Counter
	FeedItems prometheus.Counter

	// Backend metrics
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CacheReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_cache_reads_total",
				Help:      "Query cache reads by descriptor kind and result (fresh, stale, miss)",
			},
			[]string{"kind", "result"},
		),
		QueryFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_fetches_total",
				Help:      "Backend fetches issued by the query cache",
			},
			[]string{"kind", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_fetch_duration_seconds",
				Help:      "Query fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Mutations by kind and outcome",
			},
			[]string{"mutation", "status"},
		),
		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_duration_seconds",
				Help:      "Mutation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mutation"},
		),
		Compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compensations_total",
				Help:      "Orphaned upload deletions after failed mutations",
			},
			[]string{"mutation", "status"},
		),
		FeedPages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_pages_total",
				Help:      "Feed pages fetched",
			},
		),
		FeedItems: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_items_total",
				Help:      "Posts received in feed pages",
			},
		),
		BackendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_calls_total",
				Help:      "Calls made to the backend of record",
			},
			[]string{"operation", "status"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_call_duration_seconds",
				Help:      "Backend call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.CacheReads,
		c.QueryFetches,
		c.QueryDuration,
		c.Mutations,
		c.MutationDuration,
		c.Compensations,
		c.FeedPages,
		c.FeedItems,
		c.BackendCalls,
		c.BackendDuration,
		c.BreakerState,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// RecordCacheRead counts one hook read.
func (c *Collector) RecordCacheRead(kind string, result string) {
	c.CacheReads.WithLabelValues(kind, result).Inc()
}

// RecordQueryFetch counts one query fetch.
func (c *Collector) RecordQueryFetch(kind string, err error, duration time.Duration) {
	c.QueryFetches.WithLabelValues(kind, Status(err)).Inc()
	c.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordMutation counts one settled mutation.
func (c *Collector) RecordMutation(kind string, err error, duration time.Duration) {
	c.Mutations.WithLabelValues(kind, Status(err)).Inc()
	c.MutationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCompensation counts one compensating file deletion.
func (c *Collector) RecordCompensation(kind string, err error) {
	c.Compensations.WithLabelValues(kind, Status(err)).Inc()
}

// RecordFeedPage counts one feed page.
func (c *Collector) RecordFeedPage(items int, err error) {
	if err != nil {
		return
	}
	c.FeedPages.Inc()
	c.FeedItems.Add(float64(items))
}

// RecordBackendCall counts one call to the backend.
func (c *Collector) RecordBackendCall(operation string, err error, duration time.Duration) {
	c.BackendCalls.WithLabelValues(operation, Status(err)).Inc()
	c.BackendDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBreakerState publishes a circuit breaker transition.
func (c *Collector) RecordBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordHTTPRequest counts one request served by the metrics endpoint.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Status maps an error to a metric label: "ok", or the lower-cased error type.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	if t := apperrors.TypeOf(err); t != "" {
		return strings.ToLower(string(t))
	}
	return "error"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
