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

// Package keyed implements KeyedWindows. A keyed window associates group keys with a window.
// A group key uniquely identifies a partitioned set of events in a given time window.
package keyed

import (
	"fmt"
	"sort"
	"time"

	"github.com/numaproj/pagecount/pkg/window"
)

// Key identifies a single counter, a group key within a window.
type Key struct {
	GroupKey string
	Window   window.IntervalWindow
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.GroupKey, k.Window)
}

// Entry is the running count for a Key.
type Entry struct {
	Key
	Count       int64
	LastUpdated time.Time
}

// AlignedKeyedWindow holds the counters of all the group keys seen in a window.
// In a keyed stream, we need to close all the group keys when the watermark is past the window.
// It is not safe for concurrent use, the owner serializes access.
type AlignedKeyedWindow struct {
	// Start time of the window
	Start time.Time
	// End time of the window
	End time.Time
	// entries by group key
	entries map[string]*Entry
}

// NewKeyedWindow creates a new keyed window
func NewKeyedWindow(iw window.IntervalWindow) *AlignedKeyedWindow {
	return &AlignedKeyedWindow{
		Start:   iw.Start,
		End:     iw.End,
		entries: make(map[string]*Entry),
	}
}

// StartTime returns start of the window.
func (kw *AlignedKeyedWindow) StartTime() time.Time {
	return kw.Start
}

// EndTime returns end of the window.
func (kw *AlignedKeyedWindow) EndTime() time.Time {
	return kw.End
}

// Interval returns the window boundaries.
func (kw *AlignedKeyedWindow) Interval() window.IntervalWindow {
	return window.IntervalWindow{Start: kw.Start, End: kw.End}
}

// Has reports whether the group key already has a counter in this window.
func (kw *AlignedKeyedWindow) Has(groupKey string) bool {
	_, ok := kw.entries[groupKey]
	return ok
}

// Increment adds one to the counter of the group key, creating it if needed.
// LastUpdated keeps the latest ts seen for the group key.
func (kw *AlignedKeyedWindow) Increment(groupKey string, ts time.Time) {
	e, ok := kw.entries[groupKey]
	if !ok {
		e = &Entry{Key: Key{GroupKey: groupKey, Window: kw.Interval()}, LastUpdated: ts}
		kw.entries[groupKey] = e
	}
	e.Count++
	if ts.After(e.LastUpdated) {
		e.LastUpdated = ts
	}
}

// Len returns the number of group keys in the window.
func (kw *AlignedKeyedWindow) Len() int {
	return len(kw.entries)
}

// Entries returns copies of the counters ordered by group key.
func (kw *AlignedKeyedWindow) Entries() []Entry {
	out := make([]Entry, 0, len(kw.entries))
	for _, e := range kw.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupKey < out[j].GroupKey
	})
	return out
}

// GroupKeys returns the sorted group keys of the window.
func (kw *AlignedKeyedWindow) GroupKeys() []string {
	keys := make([]string, 0, len(kw.entries))
	for k := range kw.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
