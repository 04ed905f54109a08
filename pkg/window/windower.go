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
	"fmt"
	"time"
)

// Windower assigns event times to windows.
type Windower interface {
	// AssignWindow returns the window the given event time belongs to.
	AssignWindow(eventTime time.Time) *IntervalWindow
}

// IntervalWindow is the half-open interval [Start, End).
type IntervalWindow struct {
	// Start time of the window, inclusive
	Start time.Time
	// End time of the window, exclusive
	End time.Time
}

// NewIntervalWindow returns a window for the given boundaries.
func NewIntervalWindow(start, end time.Time) *IntervalWindow {
	return &IntervalWindow{Start: start, End: end}
}

// StartTime returns start of the window.
func (w IntervalWindow) StartTime() time.Time {
	return w.Start
}

// EndTime returns end of the window.
func (w IntervalWindow) EndTime() time.Time {
	return w.End
}

// Contains returns true if t falls within [Start, End).
func (w IntervalWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w IntervalWindow) String() string {
	return fmt.Sprintf("[%d, %d)", w.Start.UnixMilli(), w.End.UnixMilli())
}

// Spec is the windowing configuration. It is fixed for the lifetime of an engine.
type Spec struct {
	// Size is the temporal length of the window.
	Size time.Duration
	// Grace is how long after End a window still accepts events.
	Grace time.Duration
}

// Validate checks that the window size is positive and the grace period is not negative.
func (s Spec) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %s", s.Size)
	}
	if s.Grace < 0 {
		return fmt.Errorf("window grace period must not be negative, got %s", s.Grace)
	}
	return nil
}
