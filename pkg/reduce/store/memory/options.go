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

package memory

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type options struct {
	// grace keeps a window open after its end
	grace time.Duration
	// maxEntries caps the number of live entries, 0 means unbounded
	maxEntries int
	log        *zap.SugaredLogger
}

// Option to apply on the memory store.
type Option func(*options) error

// WithGrace sets the grace period of the windows
func WithGrace(grace time.Duration) Option {
	return func(o *options) error {
		if grace < 0 {
			return fmt.Errorf("grace must not be negative, got %s", grace)
		}
		o.grace = grace
		return nil
	}
}

// WithMaxEntries sets the capacity of the store
func WithMaxEntries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("max entries must not be negative, got %d", n)
		}
		o.maxEntries = n
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) error {
		o.log = log
		return nil
	}
}
