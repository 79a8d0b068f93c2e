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

package event

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

func newEventMetrics(promRegistry prometheus.Registerer) *eventMetrics {
	return &eventMetrics{
		eventsTotal: registerCollector(
			promRegistry,
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "event_bus_events_total",
					Help: "total events published by type",
				},
				[]string{"type"},
			),
		),
		subscribers: registerCollector(
			promRegistry,
			prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "event_bus_subscribers",
					Help: "current subscribers by event type and kind",
				},
				[]string{"type", "kind"},
			),
		),
		deliveryErrors: registerCollector(
			promRegistry,
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "event_bus_delivery_errors_total",
					Help: "failed or dropped event deliveries by event type and kind",
				},
				[]string{"type", "kind"},
			),
		),
	}
}

// registerCollector registers c, reusing an identical collector that is
// already registered with the same registry
func registerCollector[T prometheus.Collector](registry prometheus.Registerer, c T) T {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
