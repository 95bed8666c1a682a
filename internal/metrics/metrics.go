// Package metrics exports pipeline lifecycle events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"methcall/internal/pipeline"
)

const namespace = "methcall"

// Recorder holds the pipeline metrics on a private registry so that a run
// never touches the global default registry.
type Recorder struct {
	Registry *prometheus.Registry

	BatchesAllocated prometheus.Counter
	BatchesReleased  prometheus.Counter
	BatchesLive      prometheus.Gauge

	StageInFlight *prometheus.GaugeVec
	StageDuration *prometheus.HistogramVec
	StageRecords  *prometheus.CounterVec
	StageErrors   *prometheus.CounterVec
}

var _ pipeline.Observer = (*Recorder)(nil)

// New registers every metric on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		Registry: reg,

		BatchesAllocated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_allocated_total",
			Help:      "Batches allocated by the scheduler.",
		}),
		BatchesReleased: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_released_total",
			Help:      "Batches released by the scheduler.",
		}),
		BatchesLive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_live",
			Help:      "Batches allocated and not yet released.",
		}),

		StageInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_in_flight",
			Help:      "Stage invocations currently running.",
		}, []string{"stage"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of one stage invocation on one batch.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		StageRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_records_total",
			Help:      "Records handled by each stage.",
		}, []string{"stage"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Stage invocations that returned an error or panicked.",
		}, []string{"stage"}),
	}
}

func (r *Recorder) BatchAllocated(int) {
	r.BatchesAllocated.Inc()
	r.BatchesLive.Inc()
}

func (r *Recorder) BatchReleased(int) {
	r.BatchesReleased.Inc()
	r.BatchesLive.Dec()
}

func (r *Recorder) StageStarted(stage pipeline.Stage, _ int) {
	r.StageInFlight.WithLabelValues(string(stage)).Inc()
}

func (r *Recorder) StageFinished(stage pipeline.Stage, _ int, records int, d time.Duration, err error) {
	s := string(stage)
	r.StageInFlight.WithLabelValues(s).Dec()
	r.StageDuration.WithLabelValues(s).Observe(d.Seconds())
	r.StageRecords.WithLabelValues(s).Add(float64(records))
	if err != nil {
		r.StageErrors.WithLabelValues(s).Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node-exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
