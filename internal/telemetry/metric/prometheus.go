package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minidb"

// Registry holds the server's metric instruments.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	SnapshotDuration  *prometheus.HistogramVec
	SnapshotBytes     prometheus.Gauge
	SnapshotRecords   prometheus.Gauge
	SnapshotErrors    *prometheus.CounterVec
}

// NewRegistry creates a Registry with every instrument registered, plus the
// standard Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted client connections.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of commands processed, by verb and status.",
		}, []string{"verb", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command processing latency.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"verb"}),
		SnapshotDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time taken to save or load the persisted image.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		SnapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of the last persisted image.",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Number of records in the last persisted or loaded image.",
		}),
		SnapshotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Failed image saves and loads.",
		}, []string{"op"}),
	}

	r.reg.MustRegister(
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.CommandsTotal,
		r.CommandDuration,
		r.SnapshotDuration,
		r.SnapshotBytes,
		r.SnapshotRecords,
		r.SnapshotErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RegisterStoreSize registers a gauge reporting the live key count.
func (r *Registry) RegisterStoreSize(size func() int) {
	if r == nil {
		return
	}
	r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_keys",
		Help:      "Number of keys currently held in the store.",
	}, func() float64 { return float64(size()) }))
}

// Handler returns the HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// ObserveCommand records a processed command.
func (r *Registry) ObserveCommand(verb, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(verb, status).Inc()
	r.CommandDuration.WithLabelValues(verb).Observe(d.Seconds())
}

// ObserveSnapshot records a save or load of the persisted image.
func (r *Registry) ObserveSnapshot(op string, records int, bytes int64, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.SnapshotDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.SnapshotErrors.WithLabelValues(op).Inc()
		return
	}
	r.SnapshotRecords.Set(float64(records))
	if bytes >= 0 {
		r.SnapshotBytes.Set(float64(bytes))
	}
}
