// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors the plugin lifecycle
// manager (C9) and workflow executor (C7) report against.
type Metrics struct {
	PluginStartsTotal    *prometheus.CounterVec
	PluginRestartsTotal  *prometheus.CounterVec
	PluginHealthLatency  *prometheus.HistogramVec
	StepDuration         *prometheus.HistogramVec
	WorkflowRunsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns a Metrics instance against reg. A
// nil reg registers against prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		PluginStartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oatty",
			Subsystem: "plugin",
			Name:      "starts_total",
			Help:      "Plugin start attempts, labeled by plugin and outcome.",
		}, []string{"plugin", "outcome"}),

		PluginRestartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oatty",
			Subsystem: "plugin",
			Name:      "restarts_total",
			Help:      "Plugin restart attempts, labeled by plugin and outcome.",
		}, []string{"plugin", "outcome"}),

		PluginHealthLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oatty",
			Subsystem: "plugin",
			Name:      "health_check_latency_ms",
			Help:      "Plugin health check round-trip latency in milliseconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin"}),

		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oatty",
			Subsystem: "workflow",
			Name:      "step_duration_seconds",
			Help:      "Step execution duration in seconds, labeled by step status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		WorkflowRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oatty",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Completed workflow runs, labeled by final status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.PluginStartsTotal, m.PluginRestartsTotal, m.PluginHealthLatency,
		m.StepDuration, m.WorkflowRunsTotal)

	return m
}
