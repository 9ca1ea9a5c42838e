// Package metrics экспортирует результаты запусков в Prometheus
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ruslano69/match-normalizer/pkg/etl"
)

// Collector - etl.Observer, обновляющий метрики по отчету запуска
type Collector struct {
	// runsTotal counts finished runs by outcome
	runsTotal *prometheus.CounterVec
	// rowsTotal counts rows written to the normalized container
	rowsTotal *prometheus.CounterVec
	// runDuration observes end-to-end run latency
	runDuration *prometheus.HistogramVec
	// failuresTotal counts failed runs by the step that failed
	failuresTotal *prometheus.CounterVec
}

// NewCollector регистрирует метрики в reg (nil = prometheus.DefaultRegisterer)
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "normalizer_runs_total",
				Help: "Total number of normalization runs by outcome",
			},
			[]string{"division", "status"},
		),
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "normalizer_rows_total",
				Help: "Total number of rows written to the normalized container",
			},
			[]string{"division"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "normalizer_run_duration_seconds",
				Help:    "Duration of normalization runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"division"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "normalizer_failures_total",
				Help: "Total number of failed runs by the state in which they failed",
			},
			[]string{"division", "state"},
		),
	}
}

// Observe реализует etl.Observer
func (c *Collector) Observe(_ context.Context, report *etl.Report) {
	c.runDuration.WithLabelValues(report.Division).Observe(report.Duration.Seconds())

	if report.Succeeded() {
		c.runsTotal.WithLabelValues(report.Division, "success").Inc()
		c.rowsTotal.WithLabelValues(report.Division).Add(float64(report.Rows))
		return
	}

	c.runsTotal.WithLabelValues(report.Division, "failed").Inc()
	c.failuresTotal.WithLabelValues(report.Division, string(report.FailedState)).Inc()
}
