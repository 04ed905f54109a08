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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverflowQueue(t *testing.T) {
	q := New[int](2)
	assert.Equal(t, 0, q.Length())
	assert.Empty(t, q.Items())
	q.Append(1)
	assert.Equal(t, []int{1}, q.Items())
	q.Append(2)
	q.Append(3)
	assert.Equal(t, 2, q.Length())
	assert.Equal(t, []int{2, 3}, q.Items())
	q.Append(4)
	q.Append(5)
	q.Append(6)
	assert.Equal(t, []int{5, 6}, q.Items())
	assert.Equal(t, []int{6, 5}, q.ReversedItems())
}

func TestOverflowQueue_Concurrent(t *testing.T) {
	q := New[int](10)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Append(j)
				_ = q.Items()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, q.Length())
}
