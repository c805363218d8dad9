// SPDX-License-Identifier: MIT

// Package telemetry turns fit progress into Prometheus metrics.
//
// A Recorder satisfies both components.Observer and glm.Observer, so a
// single value can be passed to every fit of a run. Metrics live on a
// private registry and are exported once, as a node_exporter textfile,
// when the command finishes.
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects metrics for one command run.
type Recorder struct {
	registry *prometheus.Registry

	alsIterations prometheus.Counter
	alsRSS        prometheus.Gauge
	fits          *prometheus.CounterVec
	fitComponents prometheus.Gauge
	fitDuration   prometheus.Histogram
	glmIterations prometheus.Counter
	glmChange     prometheus.Gauge
	runInfo       *prometheus.GaugeVec
}

// New registers the collectors under namespace on a fresh registry.
func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		alsIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "als_iterations_total",
			Help:      "Alternating least squares iterations across all component fits.",
		}),
		alsRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "als_rss",
			Help:      "Weighted residual sum of squares after the latest iteration.",
		}),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_fits_total",
			Help:      "Completed component fits, by convergence.",
		}, []string{"converged"}),
		fitComponents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_fit_novel_components",
			Help:      "Number of novel components of the latest completed fit.",
		}),
		fitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_fit_duration_seconds",
			Help:      "Wall time of a component fit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		glmIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "glm_iterations_total",
			Help:      "IRLS iterations of trend fits.",
		}),
		glmChange: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "glm_relative_change",
			Help:      "Relative deviance change of the latest IRLS iteration.",
		}),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Always 1; labels identify the run.",
		}, []string{"run_id", "command"}),
	}
	r.registry.MustRegister(
		r.alsIterations,
		r.alsRSS,
		r.fits,
		r.fitComponents,
		r.fitDuration,
		r.glmIterations,
		r.glmChange,
		r.runInfo,
	)

	return r
}

// SetRun labels the export with a run id and the command name.
func (r *Recorder) SetRun(runID, command string) {
	r.runInfo.Reset()
	r.runInfo.WithLabelValues(runID, command).Set(1)
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// IterationDone implements components.Observer.
func (r *Recorder) IterationDone(_ int, rss float64) {
	r.alsIterations.Inc()
	r.alsRSS.Set(rss)
}

// FitDone implements components.Observer.
func (r *Recorder) FitDone(p, _ int, converged bool, elapsed time.Duration) {
	r.fits.WithLabelValues(strconv.FormatBool(converged)).Inc()
	r.fitComponents.Set(float64(p))
	r.fitDuration.Observe(elapsed.Seconds())
}

// GLMIteration implements glm.Observer.
func (r *Recorder) GLMIteration(_ int, change float64) {
	r.glmIterations.Inc()
	r.glmChange.Set(change)
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("telemetry.WriteTextfile: %w", err)
	}

	return nil
}
