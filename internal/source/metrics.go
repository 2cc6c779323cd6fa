package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChunksFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_source_chunks_total",
			Help: "Total number of block chunks fetched by mode",
		},
		[]string{"mode"},
	)

	EventsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_source_events_fetched_total",
			Help: "Total number of events returned by starknet_getEvents",
		},
	)

	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_source_pages_total",
			Help: "Total number of starknet_getEvents pages fetched",
		},
	)

	ChildRefetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_source_child_refetches_total",
			Help: "Total number of chunk refetches for contracts registered mid-chunk",
		},
	)

	SafeHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starkindexor_source_safe_head",
			Help: "Highest block the poller is allowed to index under the configured finality",
		},
	)

	ReplayedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_source_replayed_events_total",
			Help: "Total number of envelopes read from replay files",
		},
	)
)

func chunkFetchedInc(mode FetchMode) {
	ChunksFetched.WithLabelValues(mode.String()).Inc()
}

func eventsFetchedAdd(n int) {
	EventsFetched.Add(float64(n))
}

func safeHeadSet(block uint64) {
	SafeHead.Set(float64(block))
}
