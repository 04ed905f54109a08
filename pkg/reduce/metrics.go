/*
Copyright 2022 The Numaproj Authors.

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

package reduce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/pagecount/pkg/metrics"
)

// eventsProcessedCount is the number of events handed to the engine
var eventsProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "events_total",
	Help:      "Total number of events processed",
}, []string{metrics.LabelPipeline})

// eventsFilteredCount is the number of events rejected by the filter
var eventsFilteredCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "events_filtered_total",
	Help:      "Total number of events rejected by the filter",
}, []string{metrics.LabelPipeline})

// conditionsCount is the number of dropped events, labelled by the reason
var conditionsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "events_dropped_total",
	Help:      "Total number of events that could not be counted",
}, []string{metrics.LabelPipeline, metrics.LabelReason})

// resultsEmittedCount is the number of closed entries emitted
var resultsEmittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "results_total",
	Help:      "Total number of window results emitted",
}, []string{metrics.LabelPipeline})

// storeEntries is the number of live entries
var storeEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "engine",
	Name:      "store_entries",
	Help:      "Number of live window entries",
}, []string{metrics.LabelPipeline})

// watermarkMillis is the current watermark
var watermarkMillis = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "engine",
	Name:      "watermark",
	Help:      "Current watermark in epoch milliseconds",
}, []string{metrics.LabelPipeline})
