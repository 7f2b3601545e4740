package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline metrics. Each Collector owns its registry.
type Collector struct {
	registry *prometheus.Registry

	// Pipeline stage counts from the last run
	StageRecords *prometheus.GaugeVec

	// Ingestion
	RecordsRead       prometheus.Counter
	DecodeErrorsTotal prometheus.Counter
	TruncatedComments prometheus.Counter

	// Exposure fetch
	FetchTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram

	// Runs
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		StageRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_records",
				Help:      "Records remaining after each pipeline stage in the last run",
			},
			[]string{"stage"},
		),

		RecordsRead: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "impact_records_read_total",
				Help:      "Total number of impact rows read from the report file",
			},
		),

		DecodeErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passport_decode_errors_total",
				Help:      "Total number of passport entries whose LossValue failed to parse",
			},
		),

		TruncatedComments: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passport_truncated_total",
				Help:      "Total number of passport entries with tokens past the comment field",
			},
		),

		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exposure_fetch_total",
				Help:      "Exposure lookups by outcome",
			},
			[]string{"status"},
		),

		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exposure_fetch_duration_seconds",
				Help:      "Duration of a single event exposure lookup",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 15},
			},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by result",
			},
			[]string{"result"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of a full pipeline run",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 120, 300},
			},
		),
	}
}

// Nil-safe helpers so callers can run without metrics.

func (c *Collector) SetStage(stage string, n int) {
	if c == nil {
		return
	}
	c.StageRecords.WithLabelValues(stage).Set(float64(n))
}

func (c *Collector) AddRecordsRead(n int) {
	if c == nil {
		return
	}
	c.RecordsRead.Add(float64(n))
}

func (c *Collector) RecordDecodeError() {
	if c == nil {
		return
	}
	c.DecodeErrorsTotal.Inc()
}

func (c *Collector) RecordTruncated() {
	if c == nil {
		return
	}
	c.TruncatedComments.Inc()
}

func (c *Collector) RecordFetch(status string, d time.Duration) {
	if c == nil {
		return
	}
	c.FetchTotal.WithLabelValues(status).Inc()
	c.FetchDuration.Observe(d.Seconds())
}

func (c *Collector) RecordRun(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.RunsTotal.WithLabelValues(result).Inc()
	c.RunDuration.Observe(d.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
