package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Loop generation metrics
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "loop",
		Name:      "attempts_total",
		Help:      "Search attempts by evaluated status",
	}, []string{"status"})

	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "loop",
		Name:      "generations_total",
		Help:      "Finished generations by outcome",
	}, []string{"outcome"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "loop",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of a full generation, retry delays included",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	DistanceGap = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "loop",
		Name:      "distance_gap_miles",
		Help:      "Absolute gap between returned and target distance",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.03, 0.1, 0.25, 0.5, 1, 2},
	})

	SearchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlerun",
		Subsystem: "loop",
		Name:      "searches_in_flight",
		Help:      "Searches currently running",
	})

	// Directions provider metrics
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "directions",
		Name:      "request_duration_seconds",
		Help:      "Latency of directions provider requests",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "directions",
		Name:      "errors_total",
		Help:      "Directions provider failures by kind",
	}, []string{"provider", "kind"})

	ProviderThrottleWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "directions",
		Name:      "throttle_wait_seconds",
		Help:      "Time spent waiting on the provider rate limiter",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlerun",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_empty_acquires_total",
		Help:      "Total times a connection had to be established when acquiring from pool",
	})

	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_wait_count_total",
		Help:      "Total times waiting for a connection from pool",
	})

	DBPoolWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "circlerun",
		Subsystem: "db",
		Name:      "pool_wait_duration_seconds",
		Help:      "Duration waiting for a database connection",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// ObserveAttempt counts one evaluated search attempt.
func ObserveAttempt(status string) {
	AttemptsTotal.WithLabelValues(status).Inc()
}

// ObserveGeneration records a finished generation.
func ObserveGeneration(outcome string, gapMiles float64, hasRoute bool, d time.Duration) {
	GenerationsTotal.WithLabelValues(outcome).Inc()
	GenerationDuration.Observe(d.Seconds())
	if hasRoute {
		DistanceGap.Observe(gapMiles)
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// stat is a *pgxpool.Stat; the interface keeps pgx out of this package.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
