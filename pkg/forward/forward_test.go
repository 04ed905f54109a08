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

package forward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/reduce"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	sourceerrors "github.com/numaproj/pagecount/pkg/sources/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastBackoff = wait.Backoff{Steps: 3, Duration: time.Millisecond, Factor: 1}

// memReader serves the given payloads then waits for more until closed.
type memReader struct {
	sync.Mutex
	payloads  [][]byte
	pos       int
	acked     []string
	ackErrs   int
	closed    bool
	drainedCh chan struct{}
}

func newMemReader(payloads ...[]byte) *memReader {
	return &memReader{payloads: payloads, drainedCh: make(chan struct{})}
}

func (r *memReader) GetName() string { return "mem-reader" }

func (r *memReader) Read(ctx context.Context, count int64) ([]*isb.ReadMessage, error) {
	r.Lock()
	var msgs []*isb.ReadMessage
	for ; r.pos < len(r.payloads) && int64(len(msgs)) < count; r.pos++ {
		offset := fmt.Sprintf("%d", r.pos)
		m := isb.Message{Header: isb.Header{ID: offset, Key: "k"}, Body: isb.Body{Payload: r.payloads[r.pos]}}
		msgs = append(msgs, m.ToReadMessage(isb.SimpleStringOffset(func() string { return offset })))
	}
	if r.pos == len(r.payloads) && len(msgs) > 0 {
		defer close(r.drainedCh)
	}
	r.Unlock()
	if len(msgs) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
	}
	return msgs, nil
}

func (r *memReader) Ack(_ context.Context, offsets []isb.Offset) []error {
	r.Lock()
	defer r.Unlock()
	errs := make([]error, len(offsets))
	for i, o := range offsets {
		if r.ackErrs > 0 {
			r.ackErrs--
			errs[i] = &sourceerrors.SourceAckErr{Message: "try again", Retryable: true}
			continue
		}
		r.acked = append(r.acked, o.String())
	}
	return errs
}

func (r *memReader) Acked() int {
	r.Lock()
	defer r.Unlock()
	return len(r.acked)
}

func (r *memReader) Pos() int {
	r.Lock()
	defer r.Unlock()
	return r.pos
}

func (r *memReader) Close() error {
	r.Lock()
	defer r.Unlock()
	r.closed = true
	return nil
}

// memSink records the results, failing the first failures writes. A non nil gate blocks every write until closed.
type memSink struct {
	sync.Mutex
	results    []emitter.Result
	failures   int
	alwaysFail bool
	attempts   int
	closed     bool
	gate       chan struct{}
}

func (s *memSink) GetName() string { return "mem-sink" }

func (s *memSink) Write(ctx context.Context, results []emitter.Result) []error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			errs := make([]error, len(results))
			for i := range errs {
				errs[i] = ctx.Err()
			}
			return errs
		}
	}
	s.Lock()
	defer s.Unlock()
	s.attempts++
	errs := make([]error, len(results))
	if s.alwaysFail || s.failures > 0 {
		s.failures--
		for i := range errs {
			errs[i] = errors.New("sink unavailable")
		}
		return errs
	}
	s.results = append(s.results, results...)
	return errs
}

func (s *memSink) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) Attempts() int {
	s.Lock()
	defer s.Unlock()
	return s.attempts
}

func (s *memSink) Results() []emitter.Result {
	s.Lock()
	defer s.Unlock()
	return append([]emitter.Result(nil), s.results...)
}

func pagePayload(t *testing.T, name string, sec int64, duration int64) []byte {
	t.Helper()
	b, err := event.Encode(event.PageEvent{Name: name, User: "U1", Timestamp: time.Unix(sec, 0), Duration: duration})
	require.NoError(t, err)
	return b
}

func newTestForward(t *testing.T, reader *memReader, sink *memSink, opts ...Option) *DataForward {
	t.Helper()
	engine, err := reduce.NewEngine(reduce.WithPipelineName("forward-test"))
	require.NoError(t, err)
	df, err := NewDataForward(reader, engine, sink, append([]Option{
		WithPipelineName("forward-test"),
		WithReadBatchSize(2),
		WithRetryInterval(time.Millisecond),
		WithRetryBackoff(fastBackoff, fastBackoff),
	}, opts...)...)
	require.NoError(t, err)
	return df
}

func TestDataForward_PageCount(t *testing.T) {
	reader := newMemReader(
		pagePayload(t, "P1", 0, 150),
		pagePayload(t, "P1", 3, 200),
		pagePayload(t, "P1", 4, 50),
		pagePayload(t, "P1", 6, 300),
		[]byte("not json"),
	)
	sink := &memSink{}
	df := newTestForward(t, reader, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- df.Run(ctx) }()
	<-reader.drainedCh
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []emitter.Result{
		{GroupKey: "P1", WindowStart: time.Unix(0, 0), WindowEnd: time.Unix(5, 0), Count: 2},
		{GroupKey: "P1", WindowStart: time.Unix(5, 0), WindowEnd: time.Unix(10, 0), Count: 1},
	}, normalize(sink.Results()))

	stats := df.Stats()
	assert.Equal(t, int64(5), stats.Read)
	assert.Equal(t, int64(4), stats.Counted)
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, int64(2), stats.Written)
	assert.Equal(t, int64(0), stats.Lost)
	assert.Len(t, reader.acked, 5)
	assert.True(t, reader.closed)
	assert.True(t, sink.closed)
	assert.True(t, df.IsShuttingDown())
}

func TestDataForward_RetriesSinkAndAcks(t *testing.T) {
	reader := newMemReader(
		pagePayload(t, "P1", 0, 150),
		pagePayload(t, "P2", 1, 150),
		pagePayload(t, "P1", 12, 150),
	)
	reader.ackErrs = 2
	sink := &memSink{failures: 4}
	df := newTestForward(t, reader, sink)

	done := df.Start()
	<-reader.drainedCh
	// the windows closed by P1@12 are written and every offset acked while running
	require.Eventually(t, func() bool { return len(sink.Results()) == 2 && reader.Acked() == 3 }, 10*time.Second, 5*time.Millisecond)
	df.Stop()
	require.NoError(t, <-done)

	results := normalize(sink.Results())
	require.Len(t, results, 3)
	assert.Equal(t, "P1", results[0].GroupKey)
	assert.Equal(t, "P2", results[1].GroupKey)
	assert.Equal(t, time.Unix(10, 0), results[2].WindowStart)
	assert.Len(t, reader.acked, 3)
	assert.Equal(t, int64(0), df.Stats().AckFailures)
}

func TestDataForward_DrainFailureIsReported(t *testing.T) {
	reader := newMemReader(pagePayload(t, "P1", 0, 150))
	sink := &memSink{alwaysFail: true}
	df := newTestForward(t, reader, sink)

	done := df.Start()
	<-reader.drainedCh
	df.Stop()
	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink unavailable")
	assert.Equal(t, int64(1), df.Stats().Lost)
	assert.True(t, sink.closed)
}

func TestDataForward_ForceStop(t *testing.T) {
	reader := newMemReader(pagePayload(t, "P1", 0, 150), pagePayload(t, "P1", 7, 150))
	sink := &memSink{alwaysFail: true}
	// retries forever while running
	df := newTestForward(t, reader, sink, WithRetryBackoff(wait.Backoff{Steps: 1000000, Duration: time.Millisecond, Factor: 1}, fastBackoff))

	done := df.Start()
	<-reader.drainedCh
	require.Eventually(t, func() bool { return sink.Attempts() > 1 }, 10*time.Second, time.Millisecond)
	df.ForceStop()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("forwarder did not stop")
	}
	assert.GreaterOrEqual(t, df.Stats().Lost, int64(1))
}

func TestDataForward_SlowSinkStopsReads(t *testing.T) {
	var payloads [][]byte
	// every event closes the window of the previous one
	for i := int64(0); i < 200; i++ {
		payloads = append(payloads, pagePayload(t, "P1", 5*i, 150))
	}
	reader := newMemReader(payloads...)
	sink := &memSink{gate: make(chan struct{})}
	df := newTestForward(t, reader, sink, WithInputBufferSize(2), WithOutputBufferSize(2), WithWriteBatchSize(1))

	done := df.Start()
	last := -1
	require.Eventually(t, func() bool {
		cur := reader.Pos()
		stable := cur == last
		last = cur
		return stable
	}, 10*time.Second, 100*time.Millisecond)
	// 9 when stalled: the first event closes nothing, then one result in the sink, two in the output buffer,
	// one event in the engine loop, two in the input buffer and a read batch of two waiting to be handed over
	assert.LessOrEqual(t, last, 12)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, last, reader.Pos())
	assert.Empty(t, sink.Results())

	close(sink.gate)
	<-reader.drainedCh
	require.Eventually(t, func() bool { return len(sink.Results()) == 199 }, 10*time.Second, 5*time.Millisecond)
	df.Stop()
	require.NoError(t, <-done)
	assert.Len(t, sink.Results(), 200)
	assert.Equal(t, int64(200), df.Stats().Read)
}

func TestNewDataForward_InvalidOptions(t *testing.T) {
	engine, err := reduce.NewEngine()
	require.NoError(t, err)
	for _, opt := range []Option{WithReadBatchSize(0), WithInputBufferSize(0), WithOutputBufferSize(0), WithWriteBatchSize(0)} {
		_, err := NewDataForward(newMemReader(), engine, &memSink{}, opt)
		assert.Error(t, err)
	}
}

// normalize drops locations so results compare with time.Unix values.
func normalize(results []emitter.Result) []emitter.Result {
	for i := range results {
		results[i].WindowStart = time.Unix(results[i].WindowStart.Unix(), 0)
		results[i].WindowEnd = time.Unix(results[i].WindowEnd.Unix(), 0)
	}
	return results
}
