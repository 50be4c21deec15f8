/*
Copyright 2025 The brineworks Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes staged solve outcomes on a Prometheus registry so
// long optimization batches can be watched from the outside.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brineworks/treatment-network-optimizer/pkg/recovery"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

const namespace = "treatnetopt"

// Recorder owns the solve metrics and the registry they live on. Strategy
// instances report through the recovery.Recorder views that ForStrategy
// returns.
type Recorder struct {
	registry *prometheus.Registry

	solves     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	iterations *prometheus.GaugeVec
	objective  *prometheus.GaugeVec
}

// NewRecorder builds a Recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Engine runs by strategy, stage and termination status.",
		}, []string{"strategy", "stage", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock engine runtime per stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy", "stage"}),
		iterations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solve_iterations",
			Help:      "Engine iterations spent by the most recent run, per stage.",
		}, []string{"strategy", "stage"}),
		objective: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_objective_value",
			Help:      "Final objective value of the most recent optimal solve.",
		}, []string{"strategy"}),
	}
}

// ForStrategy returns a recovery.Recorder view that labels every observation
// with the given strategy name.
func (r *Recorder) ForStrategy(strategy string) recovery.Recorder {
	return &strategyRecorder{recorder: r, strategy: strategy}
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

type strategyRecorder struct {
	recorder *Recorder
	strategy string
}

func (s *strategyRecorder) RecordStage(stage string, res solver.Result) {
	s.recorder.solves.WithLabelValues(s.strategy, stage, string(res.Status)).Inc()
	s.recorder.duration.WithLabelValues(s.strategy, stage).Observe(res.Runtime.Seconds())
	s.recorder.iterations.WithLabelValues(s.strategy, stage).Set(float64(res.Iterations))
}

func (s *strategyRecorder) RecordObjective(value float64) {
	s.recorder.objective.WithLabelValues(s.strategy).Set(value)
}
