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

// Package store defines the window store that holds the running counts of the open windows.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/numaproj/pagecount/pkg/watermark/wmb"
	"github.com/numaproj/pagecount/pkg/window/keyed"
)

// Store holds one counter per (group key, window) until the window is closed by the watermark.
type Store interface {
	// Increment adds one to the counter of the key, creating it with a count of one if needed. ts is the event time
	// of the counted event.
	Increment(key keyed.Key, ts time.Time) error
	// EvictExpired removes and returns every entry whose window end plus grace is at or before the watermark,
	// sorted by window start and then group key.
	EvictExpired(wm wmb.Watermark) []keyed.Entry
	// Len returns the number of live entries.
	Len() int
	// Close closes the store, no more increments are accepted.
	Close() error
}

// ErrStoreClosed is returned when the store is used after Close.
var ErrStoreClosed = errors.New("store is closed")

// LateEventErr is returned for an increment into a window that has already been closed.
type LateEventErr struct {
	Key       keyed.Key
	Watermark wmb.Watermark
}

func (e *LateEventErr) Error() string {
	return fmt.Sprintf("late event for %s, window closed by watermark %s", e.Key, e.Watermark)
}

// StoreExhaustedErr is returned when a new entry would exceed the configured capacity.
type StoreExhaustedErr struct {
	Key        keyed.Key
	MaxEntries int
}

func (e *StoreExhaustedErr) Error() string {
	return fmt.Sprintf("store exhausted, cannot add %s, max entries %d", e.Key, e.MaxEntries)
}
