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

// Package generator implements a source of random page events. Every tick it emits a batch of page views of P1 or
// P2 by U1 or U2, stamped with the current time and lasting between 10 and 10009 milliseconds.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/shared/logging"
)

var (
	pageNames = []string{"P1", "P2"}
	userNames = []string{"U1", "U2"}
)

const (
	minDuration   = 10
	durationRange = 10000
)

// memGen generates page events in memory.
type memGen struct {
	name         string
	pipelineName string
	// rpu is the number of events generated per time unit
	rpu int
	// timeunit is the tick interval
	timeunit time.Duration
	// srcChan buffers the generated messages until they are read
	srcChan     chan *isb.ReadMessage
	bufferSize  int
	readTimeout time.Duration
	random      *rand.Rand
	now         func() time.Time
	seq         *atomic.Int64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	log         *zap.SugaredLogger
}

type Option func(*memGen) error

// WithRPU sets the number of events generated per time unit
func WithRPU(rpu int) Option {
	return func(m *memGen) error {
		if rpu < 1 {
			return fmt.Errorf("rpu must be positive, got %d", rpu)
		}
		m.rpu = rpu
		return nil
	}
}

// WithTimeunit sets the tick interval
func WithTimeunit(d time.Duration) Option {
	return func(m *memGen) error {
		if d <= 0 {
			return fmt.Errorf("time unit must be positive, got %s", d)
		}
		m.timeunit = d
		return nil
	}
}

// WithRandSource makes the generated events reproducible
func WithRandSource(src rand.Source) Option {
	return func(m *memGen) error {
		m.random = rand.New(src)
		return nil
	}
}

// WithClock sets the clock used to stamp the events
func WithClock(now func() time.Time) Option {
	return func(m *memGen) error {
		m.now = now
		return nil
	}
}

// WithBufferSize sets how many generated messages can wait to be read
func WithBufferSize(n int) Option {
	return func(m *memGen) error {
		m.bufferSize = n
		return nil
	}
}

// WithReadTimeout sets how long Read waits for the first message
func WithReadTimeout(d time.Duration) Option {
	return func(m *memGen) error {
		m.readTimeout = d
		return nil
	}
}

// WithPipelineName sets the pipeline name used to label metrics
func WithPipelineName(name string) Option {
	return func(m *memGen) error {
		m.pipelineName = name
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *memGen) error {
		m.log = l
		return nil
	}
}

// NewMemGen returns a generator source, it generates nothing until started.
func NewMemGen(name string, opts ...Option) (*memGen, error) {
	m := &memGen{
		name:         name,
		pipelineName: "default",
		rpu:          5,
		timeunit:     time.Second,
		bufferSize:   1000,
		readTimeout:  time.Second,
		now:          time.Now,
		seq:          atomic.NewInt64(0),
		cancel:       func() {},
	}
	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	if m.random == nil {
		m.random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.log == nil {
		m.log = logging.NewLogger()
	}
	m.log = m.log.With("source", name)
	m.srcChan = make(chan *isb.ReadMessage, m.bufferSize)
	return m, nil
}

func (m *memGen) GetName() string {
	return m.name
}

// Start starts generating in the background.
func (m *memGen) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		cctx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		m.wg.Add(1)
		go m.generator(cctx)
	})
	return nil
}

// Read reads up to count messages, waiting at most the read timeout for them.
func (m *memGen) Read(ctx context.Context, count int64) ([]*isb.ReadMessage, error) {
	msgs := make([]*isb.ReadMessage, 0, count)
	timeout := time.After(m.readTimeout)
loop:
	for i := int64(0); i < count; i++ {
		select {
		case msg := <-m.srcChan:
			generatorSourceReadCount.With(map[string]string{metrics.LabelComponentName: m.name, metrics.LabelPipeline: m.pipelineName}).Inc()
			msgs = append(msgs, msg)
		case <-timeout:
			break loop
		case <-ctx.Done():
			break loop
		}
	}
	return msgs, nil
}

// Ack is a no-op, generated messages are not redelivered.
func (m *memGen) Ack(_ context.Context, offsets []isb.Offset) []error {
	return make([]error, len(offsets))
}

// Close stops generating and waits for the generator to exit.
func (m *memGen) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

func (m *memGen) generator(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.timeunit)
	defer ticker.Stop()
	m.log.Infow("Generator started", zap.Int("rpu", m.rpu), zap.Duration("timeunit", m.timeunit))
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Generator stopped")
			return
		case <-ticker.C:
			generatorSourceCount.With(map[string]string{metrics.LabelComponentName: m.name, metrics.LabelPipeline: m.pipelineName}).Inc()
			for i := 0; i < m.rpu; i++ {
				msg, err := m.newReadMessage()
				if err != nil {
					m.log.Errorw("Failed to generate a page event", zap.Error(err))
					continue
				}
				select {
				case m.srcChan <- msg:
				case <-ctx.Done():
					m.log.Info("Generator stopped")
					return
				}
			}
		}
	}
}

// NewPageEvent returns a random page event.
func (m *memGen) NewPageEvent() event.PageEvent {
	return event.PageEvent{
		Name:      pageNames[m.random.Intn(len(pageNames))],
		User:      userNames[m.random.Intn(len(userNames))],
		Timestamp: m.now(),
		Duration:  minDuration + m.random.Int63n(durationRange),
	}
}

func (m *memGen) newReadMessage() (*isb.ReadMessage, error) {
	pe := m.NewPageEvent()
	payload, err := event.Encode(pe)
	if err != nil {
		return nil, err
	}
	seq := m.seq.Inc()
	msg := isb.Message{
		Header: isb.Header{
			EventTime: pe.Timestamp,
			ID:        fmt.Sprintf("%s-%d", m.name, seq),
			Key:       pe.Name,
		},
		Body: isb.Body{Payload: payload},
	}
	return msg.ToReadMessage(isb.SimpleIntOffset(func() int64 { return seq })), nil
}
