// Package metrics counts export activity. Export runs are batch jobs, so the counters are
// meant to be written out as a node-exporter textfile after a run rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is safe for concurrent use. A nil *Collector ignores every call.
type Collector struct {
	registry *prometheus.Registry

	rows     prometheus.Counter
	files    prometheus.Counter
	batches  prometheus.Counter
	exports  *prometheus.CounterVec
	duration prometheus.Histogram
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvgrid_rows_exported_total",
			Help: "Data rows written to output files.",
		}),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvgrid_files_written_total",
			Help: "Output files closed.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csvgrid_batches_total",
			Help: "Record batches pulled from sources.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvgrid_exports_total",
			Help: "Finished export runs by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "csvgrid_export_duration_seconds",
			Help:    "Wall time of export runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
	}
	c.registry.MustRegister(c.rows, c.files, c.batches, c.exports, c.duration)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RowWritten() {
	if c != nil {
		c.rows.Inc()
	}
}

func (c *Collector) FileWritten() {
	if c != nil {
		c.files.Inc()
	}
}

func (c *Collector) BatchFetched() {
	if c != nil {
		c.batches.Inc()
	}
}

// ExportFinished records one run. err decides the status label.
func (c *Collector) ExportFinished(d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.exports.WithLabelValues(status).Inc()
	c.duration.Observe(d.Seconds())
}

// WriteTextfile dumps all metrics to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
