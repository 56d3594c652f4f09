package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the JSON snapshot served on /status
type Metrics struct {
	// Request metrics
	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	// Response time metrics
	AverageResponseTime time.Duration `json:"average_response_time"`
	MinResponseTime     time.Duration `json:"min_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`

	// Balance cache metrics
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	// Chain client metrics
	ChainCalls       int64         `json:"chain_calls"`
	ChainFailures    int64         `json:"chain_failures"`
	AverageChainTime time.Duration `json:"average_chain_time"`

	// Concurrency metrics
	ActiveRequests int64 `json:"active_requests"`

	totalResponseTime time.Duration
	totalChainTime    time.Duration
	mutex             sync.RWMutex
}

// MetricsCollector records gateway activity into both an in-process snapshot
// and a private Prometheus registry.
type MetricsCollector struct {
	metrics   *Metrics
	startTime time.Time

	registry          *prometheus.Registry
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	chainCalls        *prometheus.CounterVec
	chainCallDuration *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	activeRequests    prometheus.Gauge
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		metrics: &Metrics{
			MinResponseTime: time.Duration(^uint64(0) >> 1), // Max duration
		},
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "HTTP requests handled, by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		chainCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_chain_calls_total",
				Help: "Calls made to chain clients",
			},
			[]string{"network", "operation", "result"},
		),
		chainCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_chain_call_duration_seconds",
				Help:    "Chain client call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"network", "operation"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_balance_cache_lookups_total",
				Help: "Balance cache lookups, by result",
			},
			[]string{"result"},
		),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_http_active_requests",
			Help: "Requests currently in flight",
		}),
	}

	mc.registry.MustRegister(
		mc.httpRequests,
		mc.httpDuration,
		mc.chainCalls,
		mc.chainCallDuration,
		mc.cacheLookups,
		mc.activeRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return mc
}

// Registry exposes the collector's Prometheus registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a new request
func (mc *MetricsCollector) RecordRequest() {
	atomic.AddInt64(&mc.metrics.TotalRequests, 1)
	atomic.AddInt64(&mc.metrics.ActiveRequests, 1)
	mc.activeRequests.Inc()
}

// RecordRequestComplete records request completion
func (mc *MetricsCollector) RecordRequestComplete(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.metrics.ActiveRequests, -1)
	mc.activeRequests.Dec()

	if success {
		atomic.AddInt64(&mc.metrics.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&mc.metrics.FailedRequests, 1)
	}

	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	mc.metrics.totalResponseTime += duration

	if duration < mc.metrics.MinResponseTime {
		mc.metrics.MinResponseTime = duration
	}

	if duration > mc.metrics.MaxResponseTime {
		mc.metrics.MaxResponseTime = duration
	}

	totalRequests := atomic.LoadInt64(&mc.metrics.TotalRequests)
	if totalRequests > 0 {
		mc.metrics.AverageResponseTime = mc.metrics.totalResponseTime / time.Duration(totalRequests)
	}
}

// ObserveHTTP records the labelled Prometheus series for one finished request
func (mc *MetricsCollector) ObserveHTTP(method, route, status string, duration time.Duration) {
	mc.httpRequests.WithLabelValues(method, route, status).Inc()
	mc.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (mc *MetricsCollector) RecordCacheHit() {
	atomic.AddInt64(&mc.metrics.CacheHits, 1)
	mc.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache miss
func (mc *MetricsCollector) RecordCacheMiss() {
	atomic.AddInt64(&mc.metrics.CacheMisses, 1)
	mc.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordChainCall records one call to a chain client
func (mc *MetricsCollector) RecordChainCall(network, operation string, duration time.Duration, success bool) {
	atomic.AddInt64(&mc.metrics.ChainCalls, 1)

	result := "success"
	if !success {
		result = "error"
		atomic.AddInt64(&mc.metrics.ChainFailures, 1)
	}
	mc.chainCalls.WithLabelValues(network, operation, result).Inc()
	mc.chainCallDuration.WithLabelValues(network, operation).Observe(duration.Seconds())

	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	mc.metrics.totalChainTime += duration

	totalCalls := atomic.LoadInt64(&mc.metrics.ChainCalls)
	if totalCalls > 0 {
		mc.metrics.AverageChainTime = mc.metrics.totalChainTime / time.Duration(totalCalls)
	}
}

// GetMetrics returns a copy of current metrics
func (mc *MetricsCollector) GetMetrics() *Metrics {
	mc.metrics.mutex.RLock()
	defer mc.metrics.mutex.RUnlock()

	return &Metrics{
		TotalRequests:       atomic.LoadInt64(&mc.metrics.TotalRequests),
		SuccessfulRequests:  atomic.LoadInt64(&mc.metrics.SuccessfulRequests),
		FailedRequests:      atomic.LoadInt64(&mc.metrics.FailedRequests),
		AverageResponseTime: mc.metrics.AverageResponseTime,
		MinResponseTime:     mc.metrics.MinResponseTime,
		MaxResponseTime:     mc.metrics.MaxResponseTime,
		CacheHits:           atomic.LoadInt64(&mc.metrics.CacheHits),
		CacheMisses:         atomic.LoadInt64(&mc.metrics.CacheMisses),
		ChainCalls:          atomic.LoadInt64(&mc.metrics.ChainCalls),
		ChainFailures:       atomic.LoadInt64(&mc.metrics.ChainFailures),
		AverageChainTime:    mc.metrics.AverageChainTime,
		ActiveRequests:      atomic.LoadInt64(&mc.metrics.ActiveRequests),
	}
}

// GetUptime returns the uptime since metrics collection started
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// Reset clears the /status snapshot. Prometheus counters are monotonic and are left alone.
func (mc *MetricsCollector) Reset() {
	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	atomic.StoreInt64(&mc.metrics.TotalRequests, 0)
	atomic.StoreInt64(&mc.metrics.SuccessfulRequests, 0)
	atomic.StoreInt64(&mc.metrics.FailedRequests, 0)
	atomic.StoreInt64(&mc.metrics.CacheHits, 0)
	atomic.StoreInt64(&mc.metrics.CacheMisses, 0)
	atomic.StoreInt64(&mc.metrics.ChainCalls, 0)
	atomic.StoreInt64(&mc.metrics.ChainFailures, 0)
	atomic.StoreInt64(&mc.metrics.ActiveRequests, 0)

	mc.metrics.AverageResponseTime = 0
	mc.metrics.MinResponseTime = time.Duration(^uint64(0) >> 1)
	mc.metrics.MaxResponseTime = 0
	mc.metrics.AverageChainTime = 0
	mc.metrics.totalResponseTime = 0
	mc.metrics.totalChainTime = 0

	mc.startTime = time.Now()
}

// GetCacheHitRatio returns the cache hit ratio as a percentage
func (mc *MetricsCollector) GetCacheHitRatio() float64 {
	hits := atomic.LoadInt64(&mc.metrics.CacheHits)
	misses := atomic.LoadInt64(&mc.metrics.CacheMisses)
	total := hits + misses

	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// GetSuccessRate returns the success rate as a percentage
func (mc *MetricsCollector) GetSuccessRate() float64 {
	successful := atomic.LoadInt64(&mc.metrics.SuccessfulRequests)
	total := atomic.LoadInt64(&mc.metrics.TotalRequests)

	if total == 0 {
		return 0.0
	}

	return float64(successful) / float64(total) * 100.0
}
