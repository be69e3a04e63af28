package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TasksCreated prometheus.Counter
	StoreOps     *prometheus.CounterVec
	LiveTasks    prometheus.Gauge
	WatchClients prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TasksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Tasks created since process start.",
		}),
		StoreOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_ops_total",
			Help:      "Store operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		LiveTasks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_tasks",
			Help:      "Number of live (non-deleted) tasks in the store.",
		}),
		WatchClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_clients",
			Help:      "Connected task-watch WebSocket clients.",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds by method and route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1},
		}, []string{"method", "route"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
