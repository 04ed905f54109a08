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

// Package blackhole implements a sink discarding every result.
package blackhole

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
)

// sinkWriteCount is used to indicate the number of results discarded
var sinkWriteCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "blackhole_sink",
	Name:      "write_total",
	Help:      "Total number of results written to blackhole sink",
}, []string{metrics.LabelComponentName, metrics.LabelPipeline})

// Blackhole is a sink to emulate /dev/null
type Blackhole struct {
	name         string
	pipelineName string
}

// NewBlackhole returns a new Blackhole sink.
func NewBlackhole(name, pipelineName string) *Blackhole {
	return &Blackhole{
		name:         name,
		pipelineName: pipelineName,
	}
}

// GetName returns the name.
func (b *Blackhole) GetName() string {
	return b.name
}

// Write writes to the blackhole.
func (b *Blackhole) Write(_ context.Context, results []emitter.Result) []error {
	sinkWriteCount.With(map[string]string{metrics.LabelComponentName: b.name, metrics.LabelPipeline: b.pipelineName}).Add(float64(len(results)))
	return make([]error, len(results))
}

func (b *Blackhole) Close() error {
	return nil
}
