package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Indexing metrics
	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starkindexor_last_processed_block",
			Help: "The last block number whose events were fully applied",
		},
	)

	BlocksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
	)

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_events_dispatched_total",
			Help: "Total number of events applied by a handler",
		},
		[]string{"kind", "event"},
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_events_skipped_total",
			Help: "Total number of events without a matching contract or handler",
		},
		[]string{"reason"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starkindexor_handler_duration_seconds",
			Help:    "Time taken to apply one event, including its transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "event"},
	)

	BatchProcessingTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "starkindexor_batch_processing_duration_seconds",
			Help:    "Time taken to apply a batch of events",
			Buckets: prometheus.DefBuckets,
		},
	)

	IndexingRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starkindexor_indexing_rate_blocks_per_second",
			Help: "Current indexing rate in blocks per second",
		},
	)

	RegisteredContracts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "starkindexor_registered_contracts",
			Help: "Number of contracts routed to handlers by kind",
		},
		[]string{"kind"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starkindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "starkindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starkindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "starkindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastProcessedBlockSet(blockNum uint64) {
	LastProcessedBlock.Set(float64(blockNum))
}

func BlocksProcessedInc(count uint64) {
	BlocksProcessed.Add(float64(count))
}

func EventDispatchedInc(kind, event string) {
	EventsDispatched.WithLabelValues(kind, event).Inc()
}

func EventSkippedInc(reason string) {
	EventsSkipped.WithLabelValues(reason).Inc()
}

func HandlerDurationLog(kind, event string, duration time.Duration) {
	HandlerDuration.WithLabelValues(kind, event).Observe(duration.Seconds())
}

func BatchProcessingTimeLog(duration time.Duration) {
	BatchProcessingTime.Observe(duration.Seconds())
}

func IndexingRateLog(rate float64) {
	IndexingRate.Set(rate)
}

func RegisteredContractsInc(kind string) {
	RegisteredContracts.WithLabelValues(kind).Inc()
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
