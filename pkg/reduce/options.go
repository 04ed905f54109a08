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
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/reduce/applier"
	"github.com/numaproj/pagecount/pkg/reduce/store"
	"github.com/numaproj/pagecount/pkg/window"
)

const (
	// DefaultAllowedLateness is how far the watermark trails the highest event time unless configured.
	DefaultAllowedLateness = time.Duration(0)
	// DefaultDiagnosticsSize is the number of recent conditions kept by the engine.
	DefaultDiagnosticsSize = 100
)

// Options for the aggregation engine
type Options struct {
	// windowOpts Options for window
	windowOpts *window.Options
	// allowedLateness is subtracted from the highest event time to get the watermark
	allowedLateness time.Duration
	// durationThreshold is used by the default filter
	durationThreshold int64
	// filter overrides the default duration filter
	filter applier.Filterer
	// projector overrides the default name projector
	projector applier.Projector
	// store overrides the default memory store
	store store.Store
	// maxEntries caps the default memory store, 0 means unbounded
	maxEntries int
	// diagnosticsSize is the number of recent conditions to keep
	diagnosticsSize int
	pipelineName    string
	log             *zap.SugaredLogger
}

type Option func(*Options) error

func DefaultOptions() *Options {
	return &Options{
		windowOpts:        window.DefaultOptions(),
		allowedLateness:   DefaultAllowedLateness,
		durationThreshold: applier.DefaultDurationThreshold,
		diagnosticsSize:   DefaultDiagnosticsSize,
		pipelineName:      "default",
	}
}

// WithWindowOptions sets different window options
func WithWindowOptions(opts ...window.Option) Option {
	return func(options *Options) error {
		for _, opt := range opts {
			err := opt(options.windowOpts)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// WithAllowedLateness sets the allowed lateness of the watermark
func WithAllowedLateness(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return fmt.Errorf("allowed lateness must not be negative, got %s", d)
		}
		o.allowedLateness = d
		return nil
	}
}

// WithDurationThreshold sets the threshold of the default duration filter
func WithDurationThreshold(threshold int64) Option {
	return func(o *Options) error {
		o.durationThreshold = threshold
		return nil
	}
}

// WithFilter replaces the default duration filter
func WithFilter(f applier.Filterer) Option {
	return func(o *Options) error {
		o.filter = f
		return nil
	}
}

// WithProjector replaces the default name projector
func WithProjector(p applier.Projector) Option {
	return func(o *Options) error {
		o.projector = p
		return nil
	}
}

// WithStore replaces the default memory store, the store must apply the same grace period as the window options.
func WithStore(s store.Store) Option {
	return func(o *Options) error {
		o.store = s
		return nil
	}
}

// WithMaxEntries caps the number of live entries of the default memory store
func WithMaxEntries(n int) Option {
	return func(o *Options) error {
		o.maxEntries = n
		return nil
	}
}

// WithDiagnosticsSize sets how many recent conditions are kept
func WithDiagnosticsSize(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return fmt.Errorf("diagnostics size must be positive, got %d", n)
		}
		o.diagnosticsSize = n
		return nil
	}
}

// WithPipelineName sets the pipeline name used to label metrics
func WithPipelineName(name string) Option {
	return func(o *Options) error {
		o.pipelineName = name
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Options) error {
		o.log = log
		return nil
	}
}
