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
	"context"
	"errors"
	"sync"

	"github.com/numaproj/pagecount/pkg/metrics"
)

// ErrClosed is returned when writing to an emitter after CloseOfBook.
var ErrClosed = errors.New("emitter is closed")

// Emitter is the lazy output sequence of results. Writes block while the buffer is full, so a slow consumer applies
// backpressure all the way to the engine.
type Emitter struct {
	output       chan Result
	cob          bool // cob to avoid panic in case writes happen after close of book
	pipelineName string
	mu           sync.RWMutex
}

// NewEmitter returns an emitter buffering up to size results.
func NewEmitter(pipelineName string, size int) *Emitter {
	if size < 0 {
		size = 0
	}
	return &Emitter{
		output:       make(chan Result, size),
		pipelineName: pipelineName,
	}
}

// Write writes a result, blocking until there is room or the context is done.
func (e *Emitter) Write(ctx context.Context, r Result) error {
	// the read lock keeps CloseOfBook from closing the channel under a pending send
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cob {
		return ErrClosed
	}
	select {
	case e.output <- r:
	case <-ctx.Done():
		return ctx.Err()
	}
	emitterBufferSize.With(map[string]string{metrics.LabelPipeline: e.pipelineName}).Set(float64(len(e.output)))
	return nil
}

// WriteAll writes the results in order, stopping at the first error.
func (e *Emitter) WriteAll(ctx context.Context, results []Result) error {
	for _, r := range results {
		if err := e.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// CloseOfBook closes the output channel, the reader drains what is left and sees the end of the sequence.
func (e *Emitter) CloseOfBook() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cob {
		return
	}
	e.cob = true
	close(e.output)
}

// ReadCh exposes the read channel, a closed channel indicates COB.
func (e *Emitter) ReadCh() <-chan Result {
	return e.output
}
