// Package monitoring exports load metrics through Prometheus.
package monitoring

import (
	"fmt"
	"time"

	"etlcore/internal/engine"
	"etlcore/internal/etlerr"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements engine.MetricsReporter on a private registry.
type PrometheusMetrics struct {
	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	rowsStaged    *prometheus.CounterVec
	cellsNulled   *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ engine.MetricsReporter = (*PrometheusMetrics)(nil)

func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etlcore_stage_duration_seconds",
				Help:    "Duration of each load stage in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 18), // 1ms to ~2m
			},
			[]string{"table", "stage", "status"},
		),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etlcore_stage_total",
				Help: "Total number of load stage executions",
			},
			[]string{"table", "stage", "status"},
		),
		rowsStaged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etlcore_rows_staged_total",
				Help: "Total number of rows written to staging tables",
			},
			[]string{"table"},
		),
		cellsNulled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etlcore_cells_nulled_total",
				Help: "Total number of values set to null because they could not be converted",
			},
			[]string{"table"},
		),
		registry: registry,
	}

	registry.MustRegister(pm.stageDuration, pm.stageTotal, pm.rowsStaged, pm.cellsNulled)
	return pm
}

func (pm *PrometheusMetrics) RecordStage(table string, stage etlerr.Stage, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	pm.stageDuration.WithLabelValues(table, string(stage), status).Observe(duration.Seconds())
	pm.stageTotal.WithLabelValues(table, string(stage), status).Inc()
}

func (pm *PrometheusMetrics) RecordRows(table string, staged, nulled int) {
	pm.rowsStaged.WithLabelValues(table).Add(float64(staged))
	pm.cellsNulled.WithLabelValues(table).Add(float64(nulled))
}

func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format, for batch runs that exit before any scrape.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
