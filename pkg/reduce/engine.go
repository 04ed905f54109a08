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

// Package reduce implements the aggregation engine. Every accepted event is re-keyed by page name, assigned to a
// fixed window and counted. The watermark follows the highest event time seen, and every window it passes
// (including the grace period) is closed and emitted.
package reduce

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/applier"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	"github.com/numaproj/pagecount/pkg/reduce/store"
	"github.com/numaproj/pagecount/pkg/reduce/store/memory"
	"github.com/numaproj/pagecount/pkg/shared/queue"
	"github.com/numaproj/pagecount/pkg/watermark/progress"
	"github.com/numaproj/pagecount/pkg/watermark/wmb"
	"github.com/numaproj/pagecount/pkg/window"
	"github.com/numaproj/pagecount/pkg/window/keyed"
	"github.com/numaproj/pagecount/pkg/window/strategy/fixed"
)

// ErrEngineClosed is returned when the engine is used after Shutdown.
var ErrEngineClosed = errors.New("engine is shut down")

// Engine counts events per group key and window. It is the single writer of its store, all calls are serialized.
type Engine struct {
	opts        *Options
	spec        window.Spec
	windower    window.Windower
	filter      applier.Filterer
	projector   applier.Projector
	progressor  progress.Progressor
	store       store.Store
	diagnostics *queue.OverflowQueue[Condition]
	closed      bool
	log         *zap.SugaredLogger
	mu          sync.Mutex
}

// NewEngine returns an engine with an empty store and the watermark at wmb.InitialWatermark.
func NewEngine(inputOptions ...Option) (*Engine, error) {
	opts := DefaultOptions()
	for _, o := range inputOptions {
		if err := o(opts); err != nil {
			return nil, err
		}
	}
	spec := opts.windowOpts.Spec()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if opts.log == nil {
		opts.log = zap.NewNop().Sugar()
	}
	log := opts.log.With("pipeline", opts.pipelineName)

	filter := opts.filter
	if filter == nil {
		filter = applier.DurationFilter{Threshold: opts.durationThreshold}
	}
	projector := opts.projector
	if projector == nil {
		projector = applier.NameProjector{}
	}
	s := opts.store
	if s == nil {
		var err error
		s, err = memory.NewStore(memory.WithGrace(spec.Grace), memory.WithMaxEntries(opts.maxEntries), memory.WithLogger(log))
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		opts:        opts,
		spec:        spec,
		windower:    fixed.NewFixed(spec.Size),
		filter:      filter,
		projector:   projector,
		progressor:  progress.NewBoundedOutOfOrderness(opts.allowedLateness),
		store:       s,
		diagnostics: queue.New[Condition](opts.diagnosticsSize),
		log:         log,
	}, nil
}

// Process runs a single event through the engine and returns the results of the windows closed by it, in ascending
// (window start, group key) order. An event rejected by the filter returns no results and no error.
//
// A *event.MalformedEventErr leaves the engine untouched. A *store.LateEventErr or *store.StoreExhaustedErr drops
// the event, but the watermark has still advanced, so results may be returned along with the error.
func (e *Engine) Process(ev *event.Event) ([]emitter.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	eventsProcessedCount.With(map[string]string{metrics.LabelPipeline: e.opts.pipelineName}).Inc()

	if err := ev.Validate(); err != nil {
		e.report(ev, err)
		return nil, err
	}
	if !e.filter.Accepts(ev) {
		eventsFilteredCount.With(map[string]string{metrics.LabelPipeline: e.opts.pipelineName}).Inc()
		return nil, nil
	}
	groupKey, _, err := e.projector.Project(ev)
	if err != nil {
		e.report(ev, err)
		return nil, err
	}
	ts := ev.EventTime()

	iw := e.windower.AssignWindow(ts)
	wm := e.progressor.Observe(ts)
	watermarkMillis.With(map[string]string{metrics.LabelPipeline: e.opts.pipelineName}).Set(float64(wm.UnixMilli()))

	incErr := e.store.Increment(keyed.Key{GroupKey: groupKey, Window: *iw}, ts)
	if incErr != nil {
		e.report(ev, incErr)
	}

	return e.evict(wm), incErr
}

// Shutdown closes every open window and returns their results, then releases the store. Later calls to Process
// and Shutdown return ErrEngineClosed.
func (e *Engine) Shutdown() ([]emitter.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	results := e.evict(e.progressor.Drain())
	e.closed = true
	if err := e.store.Close(); err != nil {
		return results, err
	}
	e.log.Infow("Engine shut down", zap.Int("flushed", len(results)))
	return results, nil
}

// Watermark returns the current watermark.
func (e *Engine) Watermark() wmb.Watermark {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressor.GetWatermark()
}

// Spec returns the window spec the engine counts with.
func (e *Engine) Spec() window.Spec {
	return e.spec
}

// Len returns the number of live entries.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	return e.store.Len()
}

// Diagnostics returns the most recent conditions, oldest first.
func (e *Engine) Diagnostics() []Condition {
	return e.diagnostics.Items()
}

func (e *Engine) evict(wm wmb.Watermark) []emitter.Result {
	results := emitter.FromEntries(e.store.EvictExpired(wm))
	if len(results) > 0 {
		resultsEmittedCount.With(map[string]string{metrics.LabelPipeline: e.opts.pipelineName}).Add(float64(len(results)))
		e.log.Debugw("Closed windows", zap.Int("results", len(results)), zap.String("watermark", wm.String()))
	}
	storeEntries.With(map[string]string{metrics.LabelPipeline: e.opts.pipelineName}).Set(float64(e.store.Len()))
	return results
}

func (e *Engine) report(ev *event.Event, err error) {
	c := Condition{
		Kind:      Classify(err),
		Watermark: e.progressor.GetWatermark(),
		Err:       err,
		Time:      time.Now(),
	}
	if ev != nil {
		c.SourceKey = ev.SourceKey
		c.EventTime = ev.EventTime()
	}
	e.diagnostics.Append(c)
	conditionsCount.With(map[string]string{
		metrics.LabelPipeline: e.opts.pipelineName,
		metrics.LabelReason:   string(c.Kind),
	}).Inc()
	e.log.Warnw("Dropping event", zap.String("reason", string(c.Kind)), zap.String("sourceKey", c.SourceKey), zap.Error(err))
}
