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

// Package memory implements an in-memory window store. Open windows are kept in a list sorted by start time, each
// holding the counters of its group keys.
package memory

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/reduce/store"
	"github.com/numaproj/pagecount/pkg/watermark/wmb"
	"github.com/numaproj/pagecount/pkg/window"
	"github.com/numaproj/pagecount/pkg/window/keyed"
)

// Store implements store.Store in memory.
type Store struct {
	opts *options
	// windows is the list of open windows. later windows are added at the end (tail) of the list and older windows
	// can be found at the head.
	windows *list.List
	// entries is the number of live counters across all windows
	entries int
	// closedUpTo is the highest watermark windows have been evicted with
	closedUpTo wmb.Watermark
	closed     bool
	lock       sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// NewStore returns an empty in-memory store.
func NewStore(opts ...Option) (*Store, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}
	return &Store{
		opts:       o,
		windows:    list.New(),
		closedUpTo: wmb.InitialWatermark,
	}, nil
}

// Increment implements store.Store.
func (s *Store) Increment(key keyed.Key, ts time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	if s.closedUpTo != wmb.InitialWatermark && s.closedUpTo.ReachedOrPassed(key.Window.End.Add(s.opts.grace)) {
		return &store.LateEventErr{Key: key, Watermark: s.closedUpTo}
	}

	kw := s.findWindow(key.Window)
	if kw == nil || !kw.Has(key.GroupKey) {
		if s.opts.maxEntries > 0 && s.entries >= s.opts.maxEntries {
			return &store.StoreExhaustedErr{Key: key, MaxEntries: s.opts.maxEntries}
		}
		if kw == nil {
			kw = s.insertWindow(key.Window)
		}
		s.entries++
	}
	kw.Increment(key.GroupKey, ts)
	return nil
}

// EvictExpired implements store.Store.
func (s *Store) EvictExpired(wm wmb.Watermark) []keyed.Entry {
	s.lock.Lock()
	defer s.lock.Unlock()

	if wm.AfterWatermark(s.closedUpTo) {
		s.closedUpTo = wm
	}

	var evicted []keyed.Entry
	for e := s.windows.Front(); e != nil; {
		kw := e.Value.(*keyed.AlignedKeyedWindow)
		// windows share the same size, so ends are ordered like starts and we can stop at the first open one.
		if !wm.ReachedOrPassed(kw.EndTime().Add(s.opts.grace)) {
			break
		}
		next := e.Next()
		s.windows.Remove(e)
		entries := kw.Entries()
		s.entries -= len(entries)
		evicted = append(evicted, entries...)
		s.opts.log.Debugw("Closed window", zap.String("window", kw.Interval().String()), zap.Int("keys", len(entries)))
		e = next
	}
	return evicted
}

// Len implements store.Store.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.entries
}

// Windows returns the number of open windows.
func (s *Store) Windows() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.windows.Len()
}

// Close implements store.Store. Entries that were not evicted are dropped.
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.entries > 0 {
		s.opts.log.Warnw("Closing store with open windows", zap.Int("entries", s.entries), zap.Int("windows", s.windows.Len()))
	}
	s.closed = true
	s.windows.Init()
	s.entries = 0
	return nil
}

// findWindow looks for the window starting from the tail, since most events belong to the recent windows.
func (s *Store) findWindow(iw window.IntervalWindow) *keyed.AlignedKeyedWindow {
	for e := s.windows.Back(); e != nil; e = e.Prev() {
		kw := e.Value.(*keyed.AlignedKeyedWindow)
		if kw.StartTime().Equal(iw.Start) {
			return kw
		}
		if kw.StartTime().Before(iw.Start) {
			return nil
		}
	}
	return nil
}

// insertWindow adds a new window keeping the list sorted by start time.
func (s *Store) insertWindow(iw window.IntervalWindow) *keyed.AlignedKeyedWindow {
	kw := keyed.NewKeyedWindow(iw)
	for e := s.windows.Back(); e != nil; e = e.Prev() {
		if e.Value.(*keyed.AlignedKeyedWindow).StartTime().Before(iw.Start) {
			s.windows.InsertAfter(kw, e)
			return kw
		}
	}
	s.windows.PushFront(kw)
	return kw
}
