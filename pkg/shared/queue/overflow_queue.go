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

package queue

import "sync"

// OverflowQueue is a thread safe queue with a max size, once full the oldest element is overwritten.
type OverflowQueue[T any] struct {
	ring  []T
	head  int
	count int
	lock  sync.RWMutex
}

func New[T any](size int) *OverflowQueue[T] {
	if size < 1 {
		size = 1
	}
	return &OverflowQueue[T]{
		ring: make([]T, size),
	}
}

// Append adds an element to the queue
func (q *OverflowQueue[T]) Append(value T) {
	q.lock.Lock()
	defer q.lock.Unlock()
	tail := (q.head + q.count) % len(q.ring)
	q.ring[tail] = value
	if q.count == len(q.ring) {
		q.head = (q.head + 1) % len(q.ring)
		return
	}
	q.count++
}

// Items returns a copy of the elements in the queue, oldest first.
func (q *OverflowQueue[T]) Items() []T {
	q.lock.RLock()
	defer q.lock.RUnlock()
	r := make([]T, q.count)
	for i := 0; i < q.count; i++ {
		r[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	return r
}

// ReversedItems returns a copy of the elements in the queue, newest first.
func (q *OverflowQueue[T]) ReversedItems() []T {
	items := q.Items()
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// Length returns the current length of the queue
func (q *OverflowQueue[T]) Length() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.count
}
