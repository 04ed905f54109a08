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

package emitter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/pagecount/pkg/metrics"
)

// emitterBufferSize is the number of results waiting to be written
var emitterBufferSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "emitter",
	Name:      "buffer_size",
	Help:      "Number of results waiting in the emitter buffer",
}, []string{metrics.LabelPipeline})
