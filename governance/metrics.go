// Copyright 2025 Blink Labs Software
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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	proposalsCreated prometheus.Counter
	votesCast        prometheus.Counter
	executions       prometheus.Counter
	executionErrors  prometheus.Counter
	openProposals    prometheus.Gauge
	commandDuration  *prometheus.HistogramVec
	commandErrors    *prometheus.CounterVec
}

func (e *Engine) initMetrics() {
	promautoFactory := promauto.With(e.config.PromRegistry)
	e.metrics = &engineMetrics{}
	e.metrics.proposalsCreated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_proposals_created_total",
			Help: "number of proposals created",
		},
	)
	e.metrics.votesCast = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_votes_total",
			Help: "number of ballots counted",
		},
	)
	e.metrics.executions = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_executions_total",
			Help: "number of proposals handed to the execution sink",
		},
	)
	e.metrics.executionErrors = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_execution_failures_total",
			Help: "number of failed proposal executions",
		},
	)
	e.metrics.openProposals = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "governance_open_proposals",
			Help: "number of proposals open for voting as of the last sweep",
		},
	)
	e.metrics.commandDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "governance_command_duration_seconds",
			Help:    "time spent processing governance commands",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	e.metrics.commandErrors = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_command_errors_total",
			Help: "number of governance commands that returned an error",
		},
		[]string{"command"},
	)
}
