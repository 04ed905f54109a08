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

// Package sinks holds the destinations of the window results.
package sinks

import (
	"context"
	"io"

	"github.com/numaproj/pagecount/pkg/reduce/emitter"
)

// Sinker writes window results to a destination.
type Sinker interface {
	io.Closer
	// GetName returns the name of the sink.
	GetName() string
	// Write writes the results, the returned errors have the same length and order as the results.
	// A nil error means the result is persisted, the others may be retried.
	Write(ctx context.Context, results []emitter.Result) []error
}
