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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVersion       = "version"
	LabelPlatform      = "platform"
	LabelPipeline      = "pipeline"
	LabelComponent     = "component"
	LabelComponentName = "component_name"
	LabelReason        = "reason"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A metric with a constant value '1', labeled by pagecount binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Forwarder metrics
var (
	// ReadMessagesCount is used to indicate the number of total messages read from the source
	ReadMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "read_total",
		Help:      "Total number of Messages Read",
	}, []string{LabelPipeline, LabelComponentName})

	// ReadBytesCount is to indicate the number of bytes read
	ReadBytesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "read_bytes_total",
		Help:      "Total number of bytes read",
	}, []string{LabelPipeline, LabelComponentName})

	// ReadMessagesError is used to indicate the number of errors while reading from the source
	ReadMessagesError = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "read_error_total",
		Help:      "Total number of Read Errors",
	}, []string{LabelPipeline, LabelComponentName})

	// DropMessagesCount is used to indicate the number of messages not counted, by reason
	DropMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "drop_total",
		Help:      "Total number of Messages Dropped",
	}, []string{LabelPipeline, LabelReason})

	// AckMessagesCount is used to indicate the number of messages acknowledged
	AckMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "ack_total",
		Help:      "Total number of Messages Acknowledged",
	}, []string{LabelPipeline, LabelComponentName})

	// AckMessageError is used to indicate the errors in the number of messages acknowledged
	AckMessageError = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "ack_error_total",
		Help:      "Total number of Acknowledged Errors",
	}, []string{LabelPipeline, LabelComponentName})

	// WriteMessagesCount is used to indicate the number of results written to the sink
	WriteMessagesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "write_total",
		Help:      "Total number of Results Written",
	}, []string{LabelPipeline, LabelComponentName})

	// WriteMessagesError is used to indicate the number of errors while writing to the sink
	WriteMessagesError = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "write_error_total",
		Help:      "Total number of Write Errors",
	}, []string{LabelPipeline, LabelComponentName})

	// DropResultsCount is used to indicate the number of results given up on during shutdown
	DropResultsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "forwarder",
		Name:      "drop_results_total",
		Help:      "Total number of Results that could not be written before shutdown",
	}, []string{LabelPipeline, LabelComponentName})

	// WriteProcessingTime is a histogram of the time taken to write a batch to the sink
	WriteProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "forwarder",
		Name:      "write_processing_time",
		Help:      "Processing times of write operations (100 microseconds to 20 minutes)",
		Buckets:   prometheus.ExponentialBucketsRange(100, 60000000*20, 10),
	}, []string{LabelPipeline, LabelComponentName})
)
