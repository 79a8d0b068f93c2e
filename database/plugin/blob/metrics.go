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

package blob

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const blobMetricNamePrefix = "database_blob_"

// Metrics counts blob store operations. A nil *Metrics records nothing.
type Metrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
	store      string
}

// NewMetrics registers the blob counters with registry. Counters already
// registered by an earlier store instance are reused.
func NewMetrics(registry prometheus.Registerer, store string) *Metrics {
	return &Metrics{
		store: store,
		opsTotal: registerCounterVec(
			registry,
			prometheus.CounterOpts{
				Name: blobMetricNamePrefix + "ops_total",
				Help: "Total number of blob operations",
			},
		),
		bytesTotal: registerCounterVec(
			registry,
			prometheus.CounterOpts{
				Name: blobMetricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for blob operations",
			},
		),
	}
}

func registerCounterVec(
	registry prometheus.Registerer,
	opts prometheus.CounterOpts,
) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, []string{"store", "op"})
	if err := registry.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		// Unregistered counters still work, they are just not exported
		return vec
	}
	return vec
}

func (m *Metrics) RecordRead(size int) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(m.store, "get").Inc()
	m.bytesTotal.WithLabelValues(m.store, "get").Add(float64(size))
}

func (m *Metrics) RecordWrite(size int) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(m.store, "set").Inc()
	m.bytesTotal.WithLabelValues(m.store, "set").Add(float64(size))
}

func (m *Metrics) RecordDelete() {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(m.store, "delete").Inc()
}
