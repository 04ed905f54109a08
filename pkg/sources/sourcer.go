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

// Package sources holds the sources page events are read from.
package sources

import (
	"context"
	"io"

	"github.com/numaproj/pagecount/pkg/isb"
)

// SourceReader reads raw page events from a source.
type SourceReader interface {
	io.Closer
	// GetName returns the name of the source.
	GetName() string
	// Read reads up to count messages and returns at the first occurrence of an error. Error does not indicate that
	// the array of result is empty, the callee should process all the elements in the array even if the error is set.
	// Read returns early with fewer messages if none arrive within the read timeout of the source.
	Read(ctx context.Context, count int64) ([]*isb.ReadMessage, error)
	// Ack acknowledges an array of offsets, the returned errors have the same length and order as the offsets.
	Ack(ctx context.Context, offsets []isb.Offset) []error
}

// Sourcer is a SourceReader that fetches in the background once started.
type Sourcer interface {
	SourceReader
	// Start begins fetching, it returns once the source is ready to be read. Fetching stops on Close or when the
	// context is done.
	Start(ctx context.Context) error
}
