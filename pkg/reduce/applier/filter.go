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

// Package applier holds the stateless steps applied to every event before it is counted, the filter and the key
// projection.
package applier

import (
	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/shared/expr"
)

// DefaultDurationThreshold is the duration an event must exceed to be counted.
const DefaultDurationThreshold int64 = 100

// Filterer decides whether an event is counted. Implementations are pure and never fail.
type Filterer interface {
	Accepts(e *event.Event) bool
}

// FilterFunc utility function used to create a Filterer implementation
type FilterFunc func(e *event.Event) bool

func (f FilterFunc) Accepts(e *event.Event) bool {
	return f(e)
}

// DurationFilter accepts events whose duration is strictly greater than the threshold.
type DurationFilter struct {
	Threshold int64
}

var _ Filterer = DurationFilter{}

func (d DurationFilter) Accepts(e *event.Event) bool {
	return e.Payload.Duration > d.Threshold
}

// ExpressionFilter accepts events for which the boolean expression holds, evaluated against the JSON encoded
// page event. An event the expression cannot be evaluated against is rejected.
type ExpressionFilter struct {
	program *expr.BoolProgram
	log     *zap.SugaredLogger
}

var _ Filterer = (*ExpressionFilter)(nil)

// NewExpressionFilter compiles the expression, e.g. `int(json(payload).duration) > 100`.
func NewExpressionFilter(expression string, log *zap.SugaredLogger) (*ExpressionFilter, error) {
	p, err := expr.CompileBool(expression)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ExpressionFilter{program: p, log: log}, nil
}

func (f *ExpressionFilter) Accepts(e *event.Event) bool {
	payload, err := event.Encode(e.Payload)
	if err != nil {
		f.log.Warnw("Failed to encode event for the filter expression", zap.Error(err))
		return false
	}
	ok, err := f.program.Eval(payload)
	if err != nil {
		f.log.Warnw("Filter expression failed, rejecting the event", zap.String("expression", f.program.String()), zap.Error(err))
		return false
	}
	return ok
}

// All accepts an event only when every filter does. No filters accept everything.
func All(filters ...Filterer) Filterer {
	return FilterFunc(func(e *event.Event) bool {
		for _, f := range filters {
			if !f.Accepts(e) {
				return false
			}
		}
		return true
	})
}
