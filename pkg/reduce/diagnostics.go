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
	"errors"
	"time"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/reduce/store"
	"github.com/numaproj/pagecount/pkg/watermark/wmb"
)

// ConditionKind is the reason an event could not be counted.
type ConditionKind string

const (
	ConditionMalformed ConditionKind = "malformed"
	ConditionLate      ConditionKind = "late"
	ConditionExhausted ConditionKind = "exhausted"
	ConditionUnknown   ConditionKind = "unknown"
)

// Condition is a recoverable problem the engine ran into while processing an event.
type Condition struct {
	Kind      ConditionKind
	SourceKey string
	// EventTime of the offending event, zero if unknown
	EventTime time.Time
	Watermark wmb.Watermark
	Err       error
	// Time the condition was observed at
	Time time.Time
}

// Classify returns the kind of condition an error returned by Process stands for.
func Classify(err error) ConditionKind {
	var (
		malformed *event.MalformedEventErr
		late      *store.LateEventErr
		exhausted *store.StoreExhaustedErr
	)
	switch {
	case errors.As(err, &malformed):
		return ConditionMalformed
	case errors.As(err, &late):
		return ConditionLate
	case errors.As(err, &exhausted):
		return ConditionExhausted
	default:
		return ConditionUnknown
	}
}
