package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salespipeline_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salespipeline_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salespipeline_stage_transitions_total",
			Help: "Committed stage transitions by target stage",
		},
		[]string{"to_stage"},
	)
	rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salespipeline_rejections_total",
			Help: "Rejected operations by operation and error kind",
		},
		[]string{"operation", "kind"},
	)
	conversions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salespipeline_lead_conversions_total",
			Help: "Leads converted into opportunities",
		},
	)
)

func ObserveTransition(toStage string) {
	transitions.WithLabelValues(toStage).Inc()
}

func ObserveRejection(operation, kind string) {
	rejections.WithLabelValues(operation, kind).Inc()
}

func ObserveConversion() {
	conversions.Inc()
}

// Middleware records request counts and latency keyed by the matched route
// pattern, not the raw path.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
