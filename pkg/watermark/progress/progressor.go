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

// Package progress progresses the event-time watermark of a single engine from the event times it observes.
package progress

import (
	"time"

	"github.com/numaproj/pagecount/pkg/watermark/wmb"
)

// Progressor interface defines how the watermark can be progressed.
type Progressor interface {
	// Observe takes the event time of an accepted event into account and returns the resulting watermark.
	Observe(eventTime time.Time) wmb.Watermark
	// Drain moves the watermark to wmb.MaxWatermark, after that it never moves again.
	Drain() wmb.Watermark
	// GetWatermark returns the current watermark.
	GetWatermark() wmb.Watermark
}

// BoundedOutOfOrderness holds the watermark at the highest observed event time minus the allowed lateness.
// The watermark never moves backwards. It is not safe for concurrent use.
type BoundedOutOfOrderness struct {
	allowedLateness time.Duration
	watermark       wmb.Watermark
}

var _ Progressor = (*BoundedOutOfOrderness)(nil)

// NewBoundedOutOfOrderness returns a Progressor starting at wmb.InitialWatermark.
func NewBoundedOutOfOrderness(allowedLateness time.Duration) *BoundedOutOfOrderness {
	return &BoundedOutOfOrderness{
		allowedLateness: allowedLateness,
		watermark:       wmb.InitialWatermark,
	}
}

func (b *BoundedOutOfOrderness) Observe(eventTime time.Time) wmb.Watermark {
	candidate := wmb.Watermark(eventTime.Add(-b.allowedLateness))
	if candidate.AfterWatermark(b.watermark) {
		b.watermark = candidate
	}
	return b.watermark
}

func (b *BoundedOutOfOrderness) Drain() wmb.Watermark {
	b.watermark = wmb.MaxWatermark
	return b.watermark
}

func (b *BoundedOutOfOrderness) GetWatermark() wmb.Watermark {
	return b.watermark
}
