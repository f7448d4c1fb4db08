package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	IntrospectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsintrospect_introspections_total",
		Help: "Introspection calls by entry point and outcome.",
	}, []string{"entry", "outcome"})

	IntrospectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tsintrospect_introspection_seconds",
		Help:    "Time spent on a whole introspection call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entry"})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tsintrospect_parsing_seconds",
		Help:    "Time spent analyzing a single source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"grammar"})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsintrospect_files_analyzed_total",
		Help: "Total number of source files analyzed.",
	})

	FileFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsintrospect_file_failures_total",
		Help: "Files skipped because analysis failed.",
	})

	ExportsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsintrospect_exports_emitted_total",
		Help: "Export records returned to callers after filtering.",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsintrospect_cache_lookups_total",
		Help: "Result cache lookups by outcome (hit, miss).",
	}, []string{"outcome"})

	CacheWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsintrospect_cache_write_errors_total",
		Help: "Result cache writes that failed.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsintrospect_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ToolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsintrospect_tool_requests_total",
		Help: "Tool server requests by method and outcome.",
	}, []string{"method", "outcome"})
)
