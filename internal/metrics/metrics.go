// Package metrics records per-job counters and histograms and exports them
// in the Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultDryRun  = "dry_run"
)

// Metrics holds one registry per process run. A nil *Metrics discards
// every observation.
type Metrics struct {
	reg *prometheus.Registry

	JobsTotal      *prometheus.CounterVec
	PacketsTotal   *prometheus.CounterVec
	OutputBytes    prometheus.Counter
	PlannedBitrate prometheus.Histogram
	JobDuration    prometheus.Histogram
}

// New registers the vidsqueeze metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		JobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidsqueeze_jobs_total",
				Help: "Total number of jobs by result",
			},
			[]string{"result"},
		),
		PacketsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidsqueeze_packets_total",
				Help: "Total number of input packets by outcome",
			},
			[]string{"outcome"},
		),
		OutputBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "vidsqueeze_output_bytes_total",
				Help: "Total bytes written to output files",
			},
		),
		PlannedBitrate: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vidsqueeze_planned_bitrate_bps",
				Help:    "Planned video bit rate per job in bits per second",
				Buckets: prometheus.ExponentialBuckets(64_000, 2, 10),
			},
		),
		JobDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vidsqueeze_job_duration_seconds",
				Help:    "Wall time per job in seconds",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
		),
	}
}

// Job is one finished job as seen by ObserveJob.
type Job struct {
	Result         string
	PlannedBitrate int64
	Elapsed        time.Duration
	PacketsWritten int
	PacketsDropped int
	OutputBytes    int64
}

// ObserveJob records j.
func (m *Metrics) ObserveJob(j Job) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(j.Result).Inc()
	if j.PlannedBitrate > 0 {
		m.PlannedBitrate.Observe(float64(j.PlannedBitrate))
	}
	if j.Result == ResultSuccess || j.Result == ResultFailed {
		m.JobDuration.Observe(j.Elapsed.Seconds())
	}
	m.PacketsTotal.WithLabelValues("written").Add(float64(j.PacketsWritten))
	m.PacketsTotal.WithLabelValues("dropped").Add(float64(j.PacketsDropped))
	if j.OutputBytes > 0 {
		m.OutputBytes.Add(float64(j.OutputBytes))
	}
}

// WriteFile writes every metric to path in the text exposition format,
// replacing the file atomically.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
