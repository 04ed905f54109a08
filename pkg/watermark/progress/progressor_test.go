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

package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/pagecount/pkg/watermark/wmb"
)

func TestBoundedOutOfOrderness_Observe(t *testing.T) {
	tests := []struct {
		name     string
		lateness time.Duration
		events   []int64
		expected []int64
	}{
		{
			name:     "in_order",
			events:   []int64{1, 2, 3},
			expected: []int64{1, 2, 3},
		},
		{
			name:     "out_of_order_never_regresses",
			events:   []int64{6, 3, 4, 7},
			expected: []int64{6, 6, 6, 7},
		},
		{
			name:     "with_lateness",
			lateness: 2 * time.Second,
			events:   []int64{6, 3, 10},
			expected: []int64{4, 4, 8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewBoundedOutOfOrderness(tt.lateness)
			assert.Equal(t, wmb.InitialWatermark, p.GetWatermark())
			for i, e := range tt.events {
				wm := p.Observe(time.Unix(e, 0))
				assert.Equal(t, tt.expected[i], wm.UnixMilli()/1000)
				assert.Equal(t, wm, p.GetWatermark())
			}
		})
	}
}

func TestBoundedOutOfOrderness_Drain(t *testing.T) {
	p := NewBoundedOutOfOrderness(0)
	p.Observe(time.Unix(10, 0))
	assert.Equal(t, wmb.MaxWatermark, p.Drain())
	p.Observe(time.Unix(20, 0))
	assert.Equal(t, wmb.MaxWatermark, p.GetWatermark())
}
