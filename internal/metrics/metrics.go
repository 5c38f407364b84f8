package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"futures-monitor/internal/engine"
)

// Collector holds the monitor's Prometheus metrics on a private registry.
// It observes both exchange requests and refresh cycles.
type Collector struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Cycles          *prometheus.CounterVec
	LastRefresh     prometheus.Gauge
	OpenPositions   prometheus.Gauge
	OpenOrders      prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuresmon_exchange_requests_total",
				Help: "Exchange requests by endpoint and HTTP status (error for transport failures)",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "futuresmon_exchange_request_duration_seconds",
				Help:    "Exchange request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"endpoint"},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuresmon_refresh_cycles_total",
				Help: "Refresh cycles by result",
			},
			[]string{"result"},
		),
		LastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "futuresmon_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "futuresmon_open_positions",
				Help: "Positions with a non-zero amount in the last refresh",
			},
		),
		OpenOrders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "futuresmon_open_orders",
				Help: "Open orders in the last refresh",
			},
		),
	}
	c.registry.MustRegister(c.Requests, c.RequestDuration, c.Cycles, c.LastRefresh, c.OpenPositions, c.OpenOrders)
	return c
}

func (c *Collector) ObserveRequest(path string, status int, elapsed time.Duration, err error) {
	label := strconv.Itoa(status)
	if status == 0 && err != nil {
		label = "error"
	}
	c.Requests.WithLabelValues(path, label).Inc()
	c.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveCycle(snap engine.Snapshot, err error, _ time.Duration) {
	if err != nil {
		c.Cycles.WithLabelValues("error").Inc()
		return
	}
	c.Cycles.WithLabelValues("ok").Inc()
	c.LastRefresh.Set(float64(snap.RefreshedAt.Unix()))
	c.OpenPositions.Set(float64(len(snap.Positions.Rows)))
	c.OpenOrders.Set(float64(len(snap.Orders.Rows)))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
