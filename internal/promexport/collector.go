// Package promexport exposes the coordinator's in-memory metrics as
// Prometheus gauges, registered against the default registry so
// promhttp.Handler (wired in internal/httpapi) serves them at /metrics.
package promexport

import "github.com/prometheus/client_golang/prometheus"

// MetricsSource is the subset of *coordinator.Coordinator this
// collector depends on; kept as an interface so the collector can be
// unit tested against a fake without importing internal/coordinator.
type MetricsSource interface {
	Metrics() map[string]any
}

// Collector implements prometheus.Collector over a MetricsSource,
// pulling a fresh snapshot on every scrape rather than caching state
// between collections — the coordination core is already the source of
// truth, so there is nothing for this package to own.
type Collector struct {
	src MetricsSource

	queueReady     *prometheus.Desc
	queueInflight  *prometheus.Desc
	tasksTotal     *prometheus.Desc
	tasksByStatus  *prometheus.Desc
	workersTotal   *prometheus.Desc
	workersAlive   *prometheus.Desc
	inFlightTotal  *prometheus.Desc
}

// NewCollector wraps src for Prometheus registration.
func NewCollector(src MetricsSource) *Collector {
	return &Collector{
		src:           src,
		queueReady:    prometheus.NewDesc("dtq_queue_ready", "Tasks currently waiting in the ready queue.", nil, nil),
		queueInflight: prometheus.NewDesc("dtq_queue_inflight", "Tasks currently leased to a worker.", nil, nil),
		tasksTotal:    prometheus.NewDesc("dtq_tasks_total", "Total tasks known to the store.", nil, nil),
		tasksByStatus: prometheus.NewDesc("dtq_tasks_by_status", "Tasks in the store by status.", []string{"status"}, nil),
		workersTotal:  prometheus.NewDesc("dtq_workers_total", "Workers known to the registry.", nil, nil),
		workersAlive:  prometheus.NewDesc("dtq_workers_alive", "Workers within the liveness window.", nil, nil),
		inFlightTotal: prometheus.NewDesc("dtq_in_flight_total", "Sum of in-flight task counts across all workers.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueReady
	ch <- c.queueInflight
	ch <- c.tasksTotal
	ch <- c.tasksByStatus
	ch <- c.workersTotal
	ch <- c.workersAlive
	ch <- c.inFlightTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()

	emitGauge(ch, c.queueReady, m, "queue_ready")
	emitGauge(ch, c.queueInflight, m, "queue_inflight")
	emitGauge(ch, c.tasksTotal, m, "tasks_total")
	emitGauge(ch, c.workersTotal, m, "workers_total")
	emitGauge(ch, c.workersAlive, m, "workers_alive")
	emitGauge(ch, c.inFlightTotal, m, "in_flight_total")

	if byStatus, ok := m["tasks_by_status"].(map[string]int); ok {
		for status, count := range byStatus {
			ch <- prometheus.MustNewConstMetric(c.tasksByStatus, prometheus.GaugeValue, float64(count), status)
		}
	}
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, m map[string]any, key string) {
	v, ok := m[key].(int)
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v))
}
