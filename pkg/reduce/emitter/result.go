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

// Package emitter turns closed window entries into results and hands them to the writer through a bounded channel.
package emitter

import (
	"fmt"
	"time"

	"github.com/numaproj/pagecount/pkg/window/keyed"
)

// Result is the final count of a group key in a closed window.
type Result struct {
	GroupKey    string    `json:"key"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	Count       int64     `json:"count"`
}

func (r Result) String() string {
	return fmt.Sprintf("(%s, [%d, %d), %d)", r.GroupKey, r.WindowStart.UnixMilli(), r.WindowEnd.UnixMilli(), r.Count)
}

// FromEntry converts an evicted entry into a result.
func FromEntry(e keyed.Entry) Result {
	return Result{
		GroupKey:    e.GroupKey,
		WindowStart: e.Window.Start,
		WindowEnd:   e.Window.End,
		Count:       e.Count,
	}
}

// FromEntries converts evicted entries into results, keeping their order.
func FromEntries(entries []keyed.Entry) []Result {
	if len(entries) == 0 {
		return nil
	}
	results := make([]Result, len(entries))
	for i, e := range entries {
		results[i] = FromEntry(e)
	}
	return results
}
