package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kenneth/homevault/internal/entity"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Metrics holds all application metrics.
type Metrics struct {
	exportsTotal       *prometheus.CounterVec
	exportDuration     prometheus.Histogram
	importsTotal       *prometheus.CounterVec
	importDuration     prometheus.Histogram
	importRecordsTotal *prometheus.CounterVec
	cryptoOperations   *prometheus.CounterVec
	cryptoDuration     *prometheus.HistogramVec
	watchEventsTotal   *prometheus.CounterVec
	goroutines         prometheus.Gauge
	memoryAllocBytes   prometheus.Gauge
	memorySysBytes     prometheus.Gauge
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return newMetricsWithRegistry(defaultRegistry)
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_exports_total",
				Help: "Total number of backup exports",
			},
			[]string{"mode"}, // "plain" or "encrypted"
		),
		exportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backup_export_duration_seconds",
				Help:    "Backup export duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_imports_total",
				Help: "Total number of backup imports",
			},
			[]string{"result"}, // "clean" or "partial"
		),
		importDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backup_import_duration_seconds",
				Help:    "Backup import duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		importRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_import_records_total",
				Help: "Imported records by entity kind and outcome",
			},
			[]string{"kind", "outcome"}, // outcome: "created", "skipped", "error"
		),
		cryptoOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_crypto_operations_total",
				Help: "Total number of envelope seal/open operations",
			},
			[]string{"operation"}, // "seal" or "open"
		),
		cryptoDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backup_crypto_duration_seconds",
				Help:    "Envelope seal/open duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		watchEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_watch_events_total",
				Help: "Filesystem watch events by outcome",
			},
			[]string{"outcome"}, // "imported", "skipped", "error"
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
	}
}

// ObserveExport records one completed export.
func (m *Metrics) ObserveExport(duration time.Duration, encrypted bool) {
	mode := "plain"
	if encrypted {
		mode = "encrypted"
	}
	m.exportsTotal.WithLabelValues(mode).Inc()
	m.exportDuration.Observe(duration.Seconds())
}

// ObserveImport records one completed import.
func (m *Metrics) ObserveImport(duration time.Duration, clean bool) {
	result := "partial"
	if clean {
		result = "clean"
	}
	m.importsTotal.WithLabelValues(result).Inc()
	m.importDuration.Observe(duration.Seconds())
}

// ObserveImportRecord records the outcome for a single imported record.
func (m *Metrics) ObserveImportRecord(kind entity.Kind, outcome string) {
	m.importRecordsTotal.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveCryptoOperation records an envelope seal or open.
func (m *Metrics) ObserveCryptoOperation(operation string, duration time.Duration) {
	m.cryptoOperations.WithLabelValues(operation).Inc()
	m.cryptoDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveWatchEvent records the outcome of one filesystem watch event.
func (m *Metrics) ObserveWatchEvent(outcome string) {
	m.watchEventsTotal.WithLabelValues(outcome).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
