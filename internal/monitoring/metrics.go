package monitoring

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

const namespace = "vendor_scoring"

// Metrics holds application metrics. Every collector is registered on its
// own registry so tests can build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	predictions        *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
	batchItems         *prometheus.CounterVec

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec

	rateLimitBlocks   prometheus.Counter
	rateLimitErrors   prometheus.Counter
	rateLimitFallback prometheus.Counter

	recommendations   prometheus.Counter
	qualifiedVendors  prometheus.Histogram
	recommendDuration prometheus.Histogram

	cacheLookups *prometheus.CounterVec

	// Plain counters for the JSON health payload.
	requestCount int64
	errorCount   int64
	fallbacks    int64
	StartTime    time.Time
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Single-vendor predictions by outcome kind (remote or fallback)",
		}, []string{"kind"}),
		predictionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Prediction latency including fallback computation",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		batchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_prediction_items_total",
			Help:      "Vendors scored through the batch path by outcome kind",
		}, []string{"kind"}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		breakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),

		rateLimitBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_ip_blocks_total",
			Help:      "Requests rejected by the per-IP rate limit",
		}),
		rateLimitErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_redis_errors_total",
			Help:      "Redis errors seen by the rate limiter",
		}),
		rateLimitFallback: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_fallback_total",
			Help:      "Rate limit decisions made by the in-memory fallback",
		}),

		recommendations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests served",
		}),
		qualifiedVendors: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_qualified_vendors",
			Help:      "Vendors returned per recommendation",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		recommendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Time spent ranking candidates",
			Buckets:   prometheus.DefBuckets,
		}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_lookups_total",
			Help:      "Recommendation response cache lookups by result (hit or miss)",
		}, []string{"result"}),

		StartTime: time.Now(),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())

	atomic.AddInt64(&m.requestCount, 1)
	if statusCode >= 400 {
		atomic.AddInt64(&m.errorCount, 1)
	}
}

func (m *Metrics) RecordPrediction(kind string, duration time.Duration) {
	m.predictions.WithLabelValues(kind).Inc()
	m.predictionDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if kind == "fallback" {
		atomic.AddInt64(&m.fallbacks, 1)
	}
}

func (m *Metrics) RecordBatch(kind string, items int) {
	m.batchItems.WithLabelValues(kind).Add(float64(items))
}

// BreakerStateHook mirrors breaker transitions into the state gauge.
func (m *Metrics) BreakerStateHook() func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		m.breakerState.WithLabelValues(name).Set(stateToFloat(to))
		m.breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (m *Metrics) IncrementRateLimitIPBlock() { m.rateLimitBlocks.Inc() }

func (m *Metrics) IncrementRateLimitRedisError() { m.rateLimitErrors.Inc() }

func (m *Metrics) IncrementRateLimitFallback() { m.rateLimitFallback.Inc() }

func (m *Metrics) RateLimitBlockCounter() prometheus.Counter { return m.rateLimitBlocks }

func (m *Metrics) RateLimitRedisErrorCounter() prometheus.Counter { return m.rateLimitErrors }

func (m *Metrics) RateLimitFallbackCounter() prometheus.Counter { return m.rateLimitFallback }

func (m *Metrics) IncrementCacheHit() { m.cacheLookups.WithLabelValues("hit").Inc() }

func (m *Metrics) IncrementCacheMiss() { m.cacheLookups.WithLabelValues("miss").Inc() }

// CacheLookups exposes the hit/miss counter for tests.
func (m *Metrics) CacheLookups() *prometheus.CounterVec { return m.cacheLookups }

func (m *Metrics) RecordRecommendation(qualified int, duration time.Duration) {
	m.recommendations.Inc()
	m.qualifiedVendors.Observe(float64(qualified))
	m.recommendDuration.Observe(duration.Seconds())
}

// GetStats returns a small JSON-friendly summary for the health endpoint.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.requestCount)
	errs := atomic.LoadInt64(&m.errorCount)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errs) / float64(requests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"total_requests":       requests,
		"error_count":          errs,
		"error_rate_percent":   errorRate,
		"prediction_fallbacks": atomic.LoadInt64(&m.fallbacks),
		"start_time":           m.StartTime.Format(time.RFC3339),
	}
}
