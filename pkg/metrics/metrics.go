package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Arena metrics
	QueriesLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_queries_live",
			Help: "Number of query records currently held in the arena",
		},
	)

	QueriesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_queries_ingested_total",
			Help: "Total number of query records appended to the arena",
		},
	)

	// Retention metrics
	QueriesEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_queries_evicted_total",
			Help: "Total number of query records evicted by retention passes",
		},
	)

	GCRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_gc_runs_total",
			Help: "Total number of retention passes",
		},
	)

	GCDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_gc_duration_seconds",
			Help:    "Duration of retention passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Resource monitor metrics
	ResourceShortages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_resource_shortages_total",
			Help: "Total number of resource shortage warnings by kind",
		},
		[]string{"kind"},
	)

	DiskUsagePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_disk_usage_percent",
			Help: "Disk usage of the filesystem hosting a tracked file",
		},
		[]string{"path"},
	)

	// Rate limiting metrics
	RateLimitedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_rate_limited_clients",
			Help: "Number of clients currently rate-limited",
		},
	)

	// Housekeeper metrics
	CPUUsagePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_cpu_usage_percent",
			Help: "Moving average of process CPU usage",
		},
	)

	// Storage metrics
	ArchivedQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_archived_queries_total",
			Help: "Total number of query records exported to the on-disk archive",
		},
	)

	ArchiveSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_archive_size_bytes",
			Help: "Size of the on-disk archive file",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(QueriesLive)
	prometheus.MustRegister(QueriesIngested)
	prometheus.MustRegister(QueriesEvicted)
	prometheus.MustRegister(GCRuns)
	prometheus.MustRegister(GCDuration)
	prometheus.MustRegister(ResourceShortages)
	prometheus.MustRegister(DiskUsagePercent)
	prometheus.MustRegister(RateLimitedClients)
	prometheus.MustRegister(CPUUsagePercent)
	prometheus.MustRegister(ArchivedQueries)
	prometheus.MustRegister(ArchiveSizeBytes)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
