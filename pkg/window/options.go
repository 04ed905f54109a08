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

package window

import (
	"time"
)

const (
	// DefaultWindowSize is the length of a window when none is configured.
	DefaultWindowSize = 5 * time.Second
	// DefaultGrace is the grace period when none is configured.
	DefaultGrace = time.Duration(0)
)

type Options struct {
	// windowDuration to specify the duration of the window
	windowDuration time.Duration
	// grace to specify how long a window stays open after its end
	grace time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		windowDuration: DefaultWindowSize,
		grace:          DefaultGrace,
	}
}

type Option func(options *Options) error

// WithWindowDuration sets the window duration
func WithWindowDuration(wd time.Duration) Option {
	return func(o *Options) error {
		o.windowDuration = wd
		return nil
	}
}

// WithGrace sets the grace period
func WithGrace(g time.Duration) Option {
	return func(o *Options) error {
		o.grace = g
		return nil
	}
}

// Spec returns the window spec described by the options.
func (o *Options) Spec() Spec {
	return Spec{Size: o.windowDuration, Grace: o.grace}
}
