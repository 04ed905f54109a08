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

package forward

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/numaproj/pagecount/pkg/shared/logging"
	"github.com/numaproj/pagecount/pkg/shared/util"
)

const (
	DefaultReadBatchSize    = 100
	DefaultInputBufferSize  = 500
	DefaultOutputBufferSize = 500
)

// options for forwarding the message
type options struct {
	// readBatchSize is the number of messages requested from the source in one read, it also bounds ack batches
	readBatchSize int64
	// inputBufferSize is the capacity of the channel between the reader and the engine
	inputBufferSize int
	// outputBufferSize is the capacity of the emitter between the engine and the writer
	outputBufferSize int
	// writeBatchSize is the maximum number of results written to the sink at once
	writeBatchSize int
	// retryInterval is the time.Duration to sleep before reading again after a failed read
	retryInterval time.Duration
	// retryBackoff is used for sink writes and source acks while running
	retryBackoff wait.Backoff
	// drainBackoff bounds sink write retries once shutting down
	drainBackoff wait.Backoff
	pipelineName string
	// logger is used to pass the logger variable
	logger *zap.SugaredLogger
}

type Option func(*options) error

func DefaultOptions() *options {
	return &options{
		readBatchSize:    DefaultReadBatchSize,
		inputBufferSize:  DefaultInputBufferSize,
		outputBufferSize: DefaultOutputBufferSize,
		writeBatchSize:   DefaultReadBatchSize,
		retryInterval:    100 * time.Millisecond,
		retryBackoff:     util.DefaultRetryBackoff,
		drainBackoff:     util.DrainRetryBackoff,
		pipelineName:     "default",
		logger:           logging.NewLogger(),
	}
}

// WithReadBatchSize sets the read batch size
func WithReadBatchSize(f int64) Option {
	return func(o *options) error {
		if f < 1 {
			return fmt.Errorf("read batch size must be positive, got %d", f)
		}
		o.readBatchSize = f
		return nil
	}
}

// WithInputBufferSize sets the capacity of the channel feeding the engine
func WithInputBufferSize(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("input buffer size must be positive, got %d", n)
		}
		o.inputBufferSize = n
		return nil
	}
}

// WithOutputBufferSize sets the capacity of the emitter
func WithOutputBufferSize(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("output buffer size must be positive, got %d", n)
		}
		o.outputBufferSize = n
		return nil
	}
}

// WithWriteBatchSize sets the maximum number of results per sink write
func WithWriteBatchSize(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("write batch size must be positive, got %d", n)
		}
		o.writeBatchSize = n
		return nil
	}
}

// WithRetryInterval sets the retry interval
func WithRetryInterval(f time.Duration) Option {
	return func(o *options) error {
		o.retryInterval = f
		return nil
	}
}

// WithRetryBackoff sets the backoffs used while running and while draining
func WithRetryBackoff(running, draining wait.Backoff) Option {
	return func(o *options) error {
		o.retryBackoff = running
		o.drainBackoff = draining
		return nil
	}
}

// WithPipelineName sets the pipeline name used to label metrics
func WithPipelineName(name string) Option {
	return func(o *options) error {
		o.pipelineName = name
		return nil
	}
}

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}
