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

// Package forward joins a source, the counting engine and a sink. The reader, the engine loop and the writer run in
// their own goroutines, connected by bounded buffers, so a slow sink eventually stops the reads.
package forward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	"github.com/numaproj/pagecount/pkg/sinks"
	"github.com/numaproj/pagecount/pkg/sources"
	sourceerrors "github.com/numaproj/pagecount/pkg/sources/errors"
)

var errShuttingDown = errors.New("shutting down")

// DataForward reads page events from a source, counts them and writes the window results to a sink.
type DataForward struct {
	// ctx is cancelled by Stop, it only governs reading
	ctx      context.Context
	cancelFn context.CancelFunc
	// forceCtx is cancelled by ForceStop, it governs the blocking writes and retries
	forceCtx      context.Context
	forceCancelFn context.CancelFunc
	reader        sources.SourceReader
	processor     Processor
	emitter       *emitter.Emitter
	sink          sinks.Sinker
	opts          options
	stats         stats
	startOnce     sync.Once
	Shutdown
}

type stats struct {
	read     *atomic.Int64
	counted  *atomic.Int64
	dropped  *atomic.Int64
	written  *atomic.Int64
	lost     *atomic.Int64
	ackFails *atomic.Int64
}

// Stats is a snapshot of the forwarder counters.
type Stats struct {
	// Read is the number of messages read from the source
	Read int64
	// Counted is the number of events accepted by the engine, filtered events included
	Counted int64
	// Dropped is the number of messages that could not be decoded or counted
	Dropped int64
	// Written is the number of results accepted by the sink
	Written int64
	// Lost is the number of results given up on during shutdown
	Lost int64
	// AckFailures is the number of offsets that could not be acknowledged
	AckFailures int64
}

// NewDataForward creates a forwarder.
func NewDataForward(reader sources.SourceReader, processor Processor, sink sinks.Sinker, opts ...Option) (*DataForward, error) {
	options := DefaultOptions()
	for _, o := range opts {
		if err := o(options); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	forceCtx, forceCancel := context.WithCancel(context.Background())
	return &DataForward{
		ctx:           ctx,
		cancelFn:      cancel,
		forceCtx:      forceCtx,
		forceCancelFn: forceCancel,
		reader:        reader,
		processor:     processor,
		emitter:       emitter.NewEmitter(options.pipelineName, options.outputBufferSize),
		sink:          sink,
		opts:          *options,
		stats: stats{
			read:     atomic.NewInt64(0),
			counted:  atomic.NewInt64(0),
			dropped:  atomic.NewInt64(0),
			written:  atomic.NewInt64(0),
			lost:     atomic.NewInt64(0),
			ackFails: atomic.NewInt64(0),
		},
		Shutdown: Shutdown{
			rwlock: new(sync.RWMutex),
		},
	}, nil
}

// Start runs the forwarder in the background, the channel yields the result of Run once it is done.
func (df *DataForward) Start() <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- df.Run(context.Background())
		close(done)
	}()
	return done
}

// Run forwards until ctx is done or Stop is called, then drains: the read messages are counted, every open window
// is flushed and all the results are written before it returns. The source and the sink are closed on return.
// The error aggregates the results that could not be written and the close failures.
func (df *DataForward) Run(ctx context.Context) error {
	var runErr error
	df.startOnce.Do(func() {
		runErr = df.run(ctx)
	})
	return runErr
}

func (df *DataForward) run(ctx context.Context) error {
	log := df.opts.logger
	go func() {
		select {
		case <-ctx.Done():
			log.Info("Context done, stopping forwarder...")
			df.Stop()
		case <-df.ctx.Done():
		}
	}()

	log.Infow("Starting forwarder...", zap.String("source", df.reader.GetName()), zap.String("sink", df.sink.GetName()))
	inCh := make(chan *isb.ReadMessage, df.opts.inputBufferSize)
	var g errgroup.Group
	g.Go(func() error {
		defer close(inCh)
		df.readLoop(inCh)
		return nil
	})
	g.Go(func() error {
		return df.processLoop(inCh)
	})
	g.Go(func() error {
		return df.writeLoop()
	})
	err := g.Wait()
	df.forceCancelFn()

	// Clean up resources for the source and the sink.
	if cErr := df.reader.Close(); cErr != nil {
		log.Errorw("Failed to close source, shutdown anyways...", zap.Error(cErr))
		err = multierr.Append(err, fmt.Errorf("failed to close source %q, %w", df.reader.GetName(), cErr))
	}
	if cErr := df.sink.Close(); cErr != nil {
		log.Errorw("Failed to close sink, shutdown anyways...", zap.Error(cErr))
		err = multierr.Append(err, fmt.Errorf("failed to close sink %q, %w", df.sink.GetName(), cErr))
	}
	log.Infow("Forwarder stopped", zap.Any("stats", df.Stats()))
	return err
}

// Stats returns the counters of the forwarder.
func (df *DataForward) Stats() Stats {
	return Stats{
		Read:        df.stats.read.Load(),
		Counted:     df.stats.counted.Load(),
		Dropped:     df.stats.dropped.Load(),
		Written:     df.stats.written.Load(),
		Lost:        df.stats.lost.Load(),
		AckFailures: df.stats.ackFails.Load(),
	}
}

func (df *DataForward) labels() map[string]string {
	return map[string]string{metrics.LabelPipeline: df.opts.pipelineName, metrics.LabelComponentName: df.reader.GetName()}
}

// readLoop reads until Stop. Every message read is handed over to the engine loop, which drains inCh before
// shutting the engine down.
func (df *DataForward) readLoop(inCh chan<- *isb.ReadMessage) {
	for {
		if df.ctx.Err() != nil {
			df.opts.logger.Info("Stopped reading")
			return
		}
		readMessages, err := df.reader.Read(df.ctx, df.opts.readBatchSize)
		if err != nil {
			df.opts.logger.Warnw("failed to read from source", zap.Error(err))
			metrics.ReadMessagesError.With(df.labels()).Inc()
		}
		metrics.ReadMessagesCount.With(df.labels()).Add(float64(len(readMessages)))
		df.stats.read.Add(int64(len(readMessages)))
		for _, m := range readMessages {
			metrics.ReadBytesCount.With(df.labels()).Add(float64(len(m.Payload)))
			inCh <- m
		}
		if err != nil && len(readMessages) == 0 {
			select {
			case <-df.ctx.Done():
			case <-time.After(df.opts.retryInterval):
			}
		}
	}
}

// processLoop is the single writer of the engine.
func (df *DataForward) processLoop(inCh <-chan *isb.ReadMessage) error {
	offsets := make([]isb.Offset, 0, df.opts.readBatchSize)
	for m := range inCh {
		df.process(m)
		offsets = append(offsets, m.ReadOffset)
		if int64(len(offsets)) >= df.opts.readBatchSize || len(inCh) == 0 {
			df.ackFromSource(offsets)
			offsets = offsets[:0]
		}
	}
	if len(offsets) > 0 {
		df.ackFromSource(offsets)
	}

	// the input is exhausted, close every window
	results, err := df.processor.Shutdown()
	df.opts.logger.Infow("Flushing open windows", zap.Int("results", len(results)))
	if wErr := df.emitter.WriteAll(df.forceCtx, results); wErr != nil {
		df.opts.logger.Errorw("Failed to emit flushed results", zap.Error(wErr))
		err = multierr.Append(err, fmt.Errorf("failed to emit flushed results, %w", wErr))
	}
	df.emitter.CloseOfBook()
	return err
}

func (df *DataForward) process(m *isb.ReadMessage) {
	ev, err := event.Decode(m.Key, m.Payload)
	if err != nil {
		df.drop(reduce.ConditionMalformed)
		rErr := isb.MessageReadErr{Name: df.reader.GetName(), Body: m.Payload, Message: err.Error()}
		df.opts.logger.Warnw("Dropping undecodable message", zap.String("id", m.ID), zap.Error(rErr))
		return
	}
	results, err := df.processor.Process(ev)
	if err != nil {
		// the engine has logged the condition already
		df.drop(reduce.Classify(err))
	} else {
		df.stats.counted.Inc()
	}
	if len(results) == 0 {
		return
	}
	if err := df.emitter.WriteAll(df.forceCtx, results); err != nil {
		df.opts.logger.Errorw("Failed to emit results", zap.Int("results", len(results)), zap.Error(err))
	}
}

func (df *DataForward) drop(kind reduce.ConditionKind) {
	df.stats.dropped.Inc()
	metrics.DropMessagesCount.With(map[string]string{metrics.LabelPipeline: df.opts.pipelineName, metrics.LabelReason: string(kind)}).Inc()
}

// ackFromSource acks the offsets, retrying the retryable failures until they succeed or a force stop.
func (df *DataForward) ackFromSource(offsets []isb.Offset) {
	// a redelivered message can show up twice in a batch
	ackOffsets := isb.DeduplicateOffsets(offsets)
	attempt := 0
	for {
		err := wait.ExponentialBackoff(df.opts.retryBackoff, func() (done bool, err error) {
			errs := df.reader.Ack(df.forceCtx, ackOffsets)
			attempt++
			var failedOffsets []isb.Offset
			acked := 0
			for i, ackErr := range errs {
				if ackErr == nil {
					acked++
					continue
				}
				var sErr *sourceerrors.SourceAckErr
				if errors.As(ackErr, &sErr) && !sErr.IsRetryable() {
					df.opts.logger.Errorw("Failed to ack, not retrying", zap.String("offset", ackOffsets[i].String()), zap.Error(ackErr))
					df.stats.ackFails.Inc()
					metrics.AckMessageError.With(df.labels()).Inc()
					continue
				}
				failedOffsets = append(failedOffsets, ackOffsets[i])
			}
			metrics.AckMessagesCount.With(df.labels()).Add(float64(acked))
			if len(failedOffsets) == 0 {
				return true, nil
			}
			df.opts.logger.Warnw("Failed to ack from source, retrying", zap.Int("failed", len(failedOffsets)), zap.Int("attempt", attempt))
			// retry only the failed offsets
			ackOffsets = failedOffsets
			if df.forceCtx.Err() != nil {
				return false, df.forceCtx.Err()
			}
			if df.IsShuttingDown() {
				return false, errShuttingDown
			}
			return false, nil
		})
		if err == nil {
			return
		}
		if df.forceCtx.Err() != nil || errors.Is(err, errShuttingDown) {
			// unacked offsets are redelivered by sources that support it
			df.stats.ackFails.Add(int64(len(ackOffsets)))
			metrics.AckMessageError.With(df.labels()).Add(float64(len(ackOffsets)))
			df.opts.logger.Errorw("Giving up on acks", zap.Int("offsets", len(ackOffsets)), zap.Error(err))
			return
		}
	}
}

// writeLoop writes the results until the emitter is closed and empty.
func (df *DataForward) writeLoop() error {
	var errs error
	ch := df.emitter.ReadCh()
	batch := make([]emitter.Result, 0, df.opts.writeBatchSize)
	for r := range ch {
		batch = append(batch, r)
	fill:
		for len(batch) < df.opts.writeBatchSize {
			select {
			case next, ok := <-ch:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		errs = multierr.Append(errs, df.writeToSink(batch))
		batch = batch[:0]
	}
	df.opts.logger.Info("Writer exited, every result has been handed to the sink")
	return errs
}

// writeToSink is a blocking call until all the results are written, or the forwarder is shutting down and the
// drain retries are exhausted, or it is force stopped.
func (df *DataForward) writeToSink(results []emitter.Result) error {
	start := time.Now()
	defer func() {
		metrics.WriteProcessingTime.With(df.sinkLabels()).Observe(float64(time.Since(start).Microseconds()))
	}()

	pending := results
	var lastErrs []error
	attempt := 0
	write := func() (bool, error) {
		errs := df.sink.Write(df.forceCtx, pending)
		attempt++
		var failed []emitter.Result
		lastErrs = lastErrs[:0]
		for i, err := range errs {
			if err != nil {
				failed = append(failed, pending[i])
				lastErrs = append(lastErrs, err)
			}
		}
		written := len(pending) - len(failed)
		df.stats.written.Add(int64(written))
		metrics.WriteMessagesCount.With(df.sinkLabels()).Add(float64(written))
		if len(failed) == 0 {
			return true, nil
		}
		metrics.WriteMessagesError.With(df.sinkLabels()).Add(float64(len(failed)))
		df.opts.logger.Warnw("Failed to write to sink, retrying", zap.Int("failed", len(failed)), zap.Int("attempt", attempt), zap.Error(multierr.Combine(lastErrs...)))
		pending = failed
		if df.forceCtx.Err() != nil {
			return false, df.forceCtx.Err()
		}
		return false, nil
	}

	var err error
	for !df.IsShuttingDown() {
		err = wait.ExponentialBackoff(df.opts.retryBackoff, func() (bool, error) {
			if df.IsShuttingDown() {
				return false, errShuttingDown
			}
			return write()
		})
		if err == nil {
			return nil
		}
		if df.forceCtx.Err() != nil {
			break
		}
		// the backoff is exhausted, keep retrying while running
	}
	if df.forceCtx.Err() == nil {
		if err = wait.ExponentialBackoff(df.opts.drainBackoff, write); err == nil {
			return nil
		}
	}

	df.stats.lost.Add(int64(len(pending)))
	metrics.DropResultsCount.With(df.sinkLabels()).Add(float64(len(pending)))
	cause := multierr.Combine(lastErrs...)
	if cause == nil {
		cause = multierr.Combine(err, df.forceCtx.Err())
	}
	df.opts.logger.Errorw("Giving up on results", zap.Int("results", len(pending)), zap.Int("attempts", attempt), zap.Error(cause))
	return fmt.Errorf("failed to write %d results to sink %q after %d attempts, %w", len(pending), df.sink.GetName(), attempt, cause)
}

func (df *DataForward) sinkLabels() map[string]string {
	return map[string]string{metrics.LabelPipeline: df.opts.pipelineName, metrics.LabelComponentName: df.sink.GetName()}
}
