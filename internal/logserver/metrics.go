package logserver

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the log server's Prometheus collectors. They live in a
// private registry so several servers can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LinesReceived   prometheus.Counter
	FirmwareReports prometheus.Counter
	Complete        prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostprobe_logserver_requests_total",
				Help: "HTTP requests handled by the log server",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostprobe_logserver_request_duration_seconds",
				Help:    "Log server request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LinesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "ghostprobe_logserver_lines_received_total",
			Help: "Transcript lines received from devices",
		}),
		FirmwareReports: factory.NewCounter(prometheus.CounterOpts{
			Name: "ghostprobe_logserver_firmware_reports_total",
			Help: "Lines carrying a firmware version marker",
		}),
		Complete: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ghostprobe_logserver_transcript_complete",
			Help: "1 once the completion banner has been received",
		}),
	}
}

// Middleware records request counts and latency.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
