// Package metrics exposes analysis run counters in Prometheus format.
package metrics

import (
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects per-run statistics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	runs          prometheus.Counter
	files         prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	parseFailures prometheus.Counter
	deadSymbols   prometheus.Gauge
	graphNodes    prometheus.Gauge
	runDuration   prometheus.Histogram
}

var _ deadcode.MetricsRecorder = (*Recorder)(nil)

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: f.NewCounter(prometheus.CounterOpts{
			Name: "deadwood_runs_total",
			Help: "Total number of completed analysis runs.",
		}),
		files: f.NewCounter(prometheus.CounterOpts{
			Name: "deadwood_files_analyzed_total",
			Help: "Total number of source files analyzed.",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "deadwood_cache_hits_total",
			Help: "Total number of files served from the extraction cache.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "deadwood_cache_misses_total",
			Help: "Total number of files parsed because no cache entry matched.",
		}),
		parseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "deadwood_parse_failures_total",
			Help: "Total number of files that could not be parsed.",
		}),
		deadSymbols: f.NewGauge(prometheus.GaugeOpts{
			Name: "deadwood_unreachable_symbols",
			Help: "Number of unreachable symbols found by the last run.",
		}),
		graphNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "deadwood_symbols",
			Help: "Number of declared symbols in the last run.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "deadwood_run_seconds",
			Help:    "Wall time of an analysis run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(s deadcode.Stats) {
	r.runs.Inc()
	r.files.Add(float64(s.Files))
	r.cacheHits.Add(float64(s.CacheHits))
	r.cacheMisses.Add(float64(s.CacheMisses))
	r.parseFailures.Add(float64(s.ParseFailures))
	r.deadSymbols.Set(float64(s.Unreachable))
	r.graphNodes.Set(float64(s.Symbols))
	r.runDuration.Observe(s.Duration.Seconds())
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteToTextfile writes the current values in text exposition format.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
