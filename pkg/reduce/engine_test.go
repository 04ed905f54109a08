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

package reduce

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/reduce/applier"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	"github.com/numaproj/pagecount/pkg/reduce/store"
	"github.com/numaproj/pagecount/pkg/watermark/wmb"
	"github.com/numaproj/pagecount/pkg/window"
)

func pageEvent(name string, sec int64, duration int64) *event.Event {
	return &event.Event{
		SourceKey: name,
		Payload: event.PageEvent{
			Name:      name,
			User:      "U1",
			Timestamp: time.Unix(sec, 0),
			Duration:  duration,
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(append([]Option{WithPipelineName("test")}, opts...)...)
	require.NoError(t, err)
	return e
}

func result(key string, startSec int64, count int64) emitter.Result {
	return emitter.Result{
		GroupKey:    key,
		WindowStart: time.Unix(startSec, 0),
		WindowEnd:   time.Unix(startSec+5, 0),
		Count:       count,
	}
}

func assertResults(t *testing.T, expected, got []emitter.Result) {
	t.Helper()
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].GroupKey, got[i].GroupKey)
		assert.True(t, expected[i].WindowStart.Equal(got[i].WindowStart), "start %s != %s", expected[i].WindowStart, got[i].WindowStart)
		assert.True(t, expected[i].WindowEnd.Equal(got[i].WindowEnd), "end %s != %s", expected[i].WindowEnd, got[i].WindowEnd)
		assert.Equal(t, expected[i].Count, got[i].Count, "count of %s", expected[i])
	}
}

func TestEngine_PageCountExample(t *testing.T) {
	e := newTestEngine(t)

	var results []emitter.Result
	for _, ev := range []*event.Event{
		pageEvent("P1", 0, 150),
		pageEvent("P1", 3, 200),
		pageEvent("P1", 4, 50),
	} {
		r, err := e.Process(ev)
		require.NoError(t, err)
		results = append(results, r...)
	}
	assert.Empty(t, results)

	// the watermark reaches 6s and closes [0s, 5s)
	r, err := e.Process(pageEvent("P1", 6, 300))
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 0, 2)}, r)

	// a watermark of 10s closes [5s, 10s)
	r, err = e.Process(pageEvent("P2", 10, 10))
	require.NoError(t, err)
	assert.Empty(t, r, "filtered events do not move the watermark")
	r, err = e.Process(pageEvent("P2", 10, 101))
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 5, 1)}, r)

	r, err = e.Shutdown()
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P2", 10, 1)}, r)
}

func TestEngine_FilteredEventsNeverCreateEntries(t *testing.T) {
	e := newTestEngine(t)
	for i := int64(0); i < 20; i++ {
		r, err := e.Process(pageEvent("P1", i, i*5))
		require.NoError(t, err)
		assert.Empty(t, r)
	}
	// durations 0..95 are all at or below the threshold
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, wmb.InitialWatermark, e.Watermark())

	_, err := e.Process(pageEvent("P1", 1, 100))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())
	_, err = e.Process(pageEvent("P1", 1, 101))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Len())
}

func TestEngine_CountingInvariant(t *testing.T) {
	e := newTestEngine(t, WithWindowOptions(window.WithGrace(time.Hour)))
	expected := map[string]int64{}
	// out of order, interleaved keys, all within the grace period
	timestamps := []int64{7, 1, 3, 9, 0, 4, 2, 8, 5, 6, 4, 1}
	for i, ts := range timestamps {
		name := []string{"P1", "P2", "P3"}[i%3]
		_, err := e.Process(pageEvent(name, ts, 500))
		require.NoError(t, err)
		w := (ts / 5) * 5
		expected[name+"@"+time.Unix(w, 0).String()]++
	}
	results, err := e.Shutdown()
	require.NoError(t, err)

	got := map[string]int64{}
	var total int64
	for _, r := range results {
		got[r.GroupKey+"@"+r.WindowStart.String()] += r.Count
		total += r.Count
	}
	assert.Equal(t, expected, got)
	assert.Equal(t, int64(len(timestamps)), total)
}

func TestEngine_WatermarkIsMonotonic(t *testing.T) {
	e := newTestEngine(t, WithAllowedLateness(2*time.Second), WithWindowOptions(window.WithGrace(time.Minute)))
	previous := e.Watermark()
	for _, ts := range []int64{10, 3, 12, 11, 5, 20, 19, 1} {
		_, _ = e.Process(pageEvent("P1", ts, 500))
		wm := e.Watermark()
		assert.False(t, wm.BeforeWatermark(previous), "watermark moved back from %s to %s", previous, wm)
		previous = wm
	}
	assert.Equal(t, wmb.Watermark(time.Unix(18, 0)), previous)
	_, err := e.Shutdown()
	require.NoError(t, err)
	assert.Equal(t, wmb.MaxWatermark, e.Watermark())
}

func TestEngine_LateEvent(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Process(pageEvent("P1", 1, 500))
	require.NoError(t, err)
	r, err := e.Process(pageEvent("P1", 7, 500))
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 0, 1)}, r)

	// [0s, 5s) has been closed, the event is dropped and reported
	r, err = e.Process(pageEvent("P1", 2, 500))
	var late *store.LateEventErr
	require.True(t, errors.As(err, &late))
	assert.Empty(t, r)
	assert.Equal(t, 1, e.Len())

	diags := e.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, ConditionLate, diags[0].Kind)
	assert.Equal(t, "P1", diags[0].SourceKey)
	assert.Equal(t, time.Unix(2, 0), diags[0].EventTime)

	// the late event did not alter the open window
	r, err = e.Shutdown()
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 5, 1)}, r)
}

func TestEngine_GraceKeepsWindowOpen(t *testing.T) {
	e := newTestEngine(t, WithWindowOptions(window.WithGrace(2*time.Second)))
	_, err := e.Process(pageEvent("P1", 4, 500))
	require.NoError(t, err)
	r, err := e.Process(pageEvent("P1", 6, 500))
	require.NoError(t, err)
	assert.Empty(t, r)

	// still within the grace period of [0s, 5s)
	r, err = e.Process(pageEvent("P1", 3, 500))
	require.NoError(t, err)
	assert.Empty(t, r)

	r, err = e.Process(pageEvent("P2", 7, 500))
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 0, 2)}, r)
}

func TestEngine_AllowedLateness(t *testing.T) {
	e := newTestEngine(t, WithAllowedLateness(3*time.Second))
	_, err := e.Process(pageEvent("P1", 1, 500))
	require.NoError(t, err)
	r, err := e.Process(pageEvent("P1", 7, 500))
	require.NoError(t, err)
	assert.Empty(t, r, "watermark is at 4s")

	r, err = e.Process(pageEvent("P1", 2, 500))
	require.NoError(t, err)
	assert.Empty(t, r)

	r, err = e.Process(pageEvent("P1", 8, 500))
	require.NoError(t, err)
	assertResults(t, []emitter.Result{result("P1", 0, 2)}, r)
}

func TestEngine_Malformed(t *testing.T) {
	e := newTestEngine(t)
	var malformed *event.MalformedEventErr

	_, err := e.Process(pageEvent("", 1, 500))
	assert.True(t, errors.As(err, &malformed))

	noTimestamp := pageEvent("P1", 0, 500)
	noTimestamp.Payload.Timestamp = time.Time{}
	_, err = e.Process(noTimestamp)
	assert.True(t, errors.As(err, &malformed))

	_, err = e.Process(nil)
	assert.True(t, errors.As(err, &malformed))

	// malformed is reported even when the filter would have rejected the event
	_, err = e.Process(pageEvent("", 1, 50))
	assert.True(t, errors.As(err, &malformed))

	assert.Equal(t, 0, e.Len())
	assert.Equal(t, wmb.InitialWatermark, e.Watermark())
	diags := e.Diagnostics()
	require.Len(t, diags, 4)
	for _, d := range diags {
		assert.Equal(t, ConditionMalformed, d.Kind)
	}
}

func TestEngine_StoreExhausted(t *testing.T) {
	e := newTestEngine(t, WithMaxEntries(1))
	_, err := e.Process(pageEvent("P1", 1, 500))
	require.NoError(t, err)

	// the new entry is rejected but the watermark still closes [0s, 5s)
	r, err := e.Process(pageEvent("P2", 6, 500))
	var exhausted *store.StoreExhaustedErr
	require.True(t, errors.As(err, &exhausted))
	assertResults(t, []emitter.Result{result("P1", 0, 1)}, r)

	_, err = e.Process(pageEvent("P2", 6, 500))
	require.NoError(t, err)
	assert.Equal(t, ConditionExhausted, e.Diagnostics()[0].Kind)
}

func TestEngine_DrainCompleteness(t *testing.T) {
	e := newTestEngine(t, WithWindowOptions(window.WithGrace(time.Minute)))
	var emitted []emitter.Result
	for i := int64(0); i < 30; i++ {
		r, err := e.Process(pageEvent([]string{"P1", "P2"}[i%2], i, 500))
		require.NoError(t, err)
		emitted = append(emitted, r...)
	}
	r, err := e.Shutdown()
	require.NoError(t, err)
	emitted = append(emitted, r...)
	assert.Equal(t, 0, e.Len())

	seen := map[string]bool{}
	var total int64
	for i, res := range emitted {
		id := res.GroupKey + "@" + res.WindowStart.String()
		assert.False(t, seen[id], "%s emitted twice", id)
		seen[id] = true
		total += res.Count
		if i > 0 {
			prev := emitted[i-1]
			assert.False(t, res.WindowStart.Before(prev.WindowStart), "results out of order")
		}
	}
	assert.Equal(t, int64(30), total)
	assert.Len(t, seen, 12)

	_, err = e.Process(pageEvent("P1", 100, 500))
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.Shutdown()
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_CustomFilter(t *testing.T) {
	f, err := applier.NewExpressionFilter(`json(payload).user == "U2"`, nil)
	require.NoError(t, err)
	e := newTestEngine(t, WithFilter(f))
	_, err = e.Process(pageEvent("P1", 1, 500))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())

	ev := pageEvent("P1", 1, 1)
	ev.Payload.User = "U2"
	_, err = e.Process(ev)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Len())
}

func TestNewEngine_InvalidOptions(t *testing.T) {
	_, err := NewEngine(WithWindowOptions(window.WithWindowDuration(0)))
	assert.Error(t, err)
	_, err = NewEngine(WithWindowOptions(window.WithGrace(-time.Second)))
	assert.Error(t, err)
	_, err = NewEngine(WithAllowedLateness(-time.Second))
	assert.Error(t, err)
	_, err = NewEngine(WithDiagnosticsSize(0))
	assert.Error(t, err)

	e, err := NewEngine()
	require.NoError(t, err)
	assert.Equal(t, window.Spec{Size: 5 * time.Second}, e.Spec())
}
