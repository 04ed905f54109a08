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

package wmb

import (
	"math"
	"time"
)

// Watermark is the monotonically increasing event-time watermark. It asserts that no event with an event time
// earlier than the watermark is expected anymore, so any window ending before it can be closed.
type Watermark time.Time

var (
	// InitialWatermark is the watermark before any event has been seen.
	InitialWatermark = Watermark(time.Time{})
	// MaxWatermark is used to close every open window, e.g. during shutdown.
	MaxWatermark = Watermark(time.Unix(math.MaxInt64>>1, 0))
)

func (w Watermark) String() string {
	if w == MaxWatermark {
		return "+inf"
	}
	if time.Time(w).IsZero() {
		return "-inf"
	}
	var location, _ = time.LoadLocation("UTC")
	var t = time.Time(w).In(location)
	return t.Format(time.RFC3339Nano)
}

func (w Watermark) UnixMilli() int64 {
	return time.Time(w).UnixMilli()
}

func (w Watermark) After(t time.Time) bool {
	return time.Time(w).After(t)
}

func (w Watermark) AfterWatermark(compare Watermark) bool {
	return w.After(time.Time(compare))
}

func (w Watermark) Before(t time.Time) bool {
	return time.Time(w).Before(t)
}

func (w Watermark) BeforeWatermark(compare Watermark) bool {
	return w.Before(time.Time(compare))
}

// ReachedOrPassed returns true if the watermark is at or after t.
func (w Watermark) ReachedOrPassed(t time.Time) bool {
	return !time.Time(w).Before(t)
}

func (w Watermark) Add(t time.Duration) time.Time {
	return time.Time(w).Add(t)
}
