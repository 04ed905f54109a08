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

// Package fixed implements Fixed windows. Fixed windows (sometimes called tumbling windows) are
// defined by a static window size, e.g. minutely windows or hourly windows. They are generally aligned, i.e. every
// window applies across all the data for the corresponding period of time.
package fixed

import (
	"math/bits"
	"time"

	"github.com/numaproj/pagecount/pkg/window"
)

// Fixed implements Fixed window.
type Fixed struct {
	// Length is the temporal length of the window.
	Length time.Duration
}

var _ window.Windower = (*Fixed)(nil)

// NewFixed returns a Fixed windower.
func NewFixed(length time.Duration) *Fixed {
	return &Fixed{
		Length: length,
	}
}

// AssignWindow assigns a window for the given eventTime.
func (f *Fixed) AssignWindow(eventTime time.Time) *window.IntervalWindow {
	start := alignToEpoch(eventTime, f.Length)
	end := start.Add(f.Length)

	// Assignment of windows should follow a Left inclusive and right exclusive
	// principle. Since we floor the event time, any element on the boundary
	// will automatically fall in to the window to the right of the boundary.
	return window.NewIntervalWindow(start, end)
}

// alignToEpoch floors t to a multiple of length measured from the Unix epoch.
// time.Truncate measures from the zero time instead, which only agrees with the
// epoch for lengths that evenly divide the offset between the two.
func alignToEpoch(t time.Time, length time.Duration) time.Time {
	return t.Add(-sinceWindowStart(t, length)).Round(0)
}

// sinceWindowStart returns (t - epoch) mod length in [0, length). The nanoseconds since the epoch overflow int64
// outside 1678-2262, so the remainder is taken on the 128-bit product of the seconds.
func sinceWindowStart(t time.Time, length time.Duration) time.Duration {
	l := uint64(length)
	sec := t.Unix() % int64(length)
	if sec < 0 {
		sec += int64(length)
	}
	hi, lo := bits.Mul64(uint64(sec), uint64(time.Second))
	rem := bits.Rem64(hi, lo, l)
	rem = (rem + uint64(t.Nanosecond())) % l
	return time.Duration(rem)
}
