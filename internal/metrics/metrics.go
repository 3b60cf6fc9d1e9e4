package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nixbot",
			Subsystem: "chat",
			Name:      "exchanges_total",
			Help:      "Completed user/assistant exchanges",
		},
		[]string{"provider", "model"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nixbot",
			Subsystem: "chat",
			Name:      "fallbacks_total",
			Help:      "Replies served by the fallback responder after a provider error",
		},
		[]string{"provider"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nixbot",
			Subsystem: "chat",
			Name:      "tokens_total",
			Help:      "Tokens reported by the ai provider",
		},
		[]string{"provider"},
	)

	AILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nixbot",
			Subsystem: "chat",
			Name:      "ai_latency_seconds",
			Help:      "Reply generation latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "outcome"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nixbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nixbot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordExchange records a stored exchange. fellBack marks a provider failure answered by the fallback.
func RecordExchange(provider, model string, tokens int, latency time.Duration, fellBack bool) {
	outcome := "ok"
	if fellBack {
		outcome = "fallback"
		FallbacksTotal.WithLabelValues(provider).Inc()
	}
	ExchangesTotal.WithLabelValues(provider, model).Inc()
	AILatency.WithLabelValues(provider, outcome).Observe(latency.Seconds())
	if tokens > 0 {
		TokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
}

// GinMiddleware counts requests by route template, so ids never become label values.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
