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

// Package nats implements a source reading page events from a NATS subject with a queue subscription.
// Core NATS has no acknowledgement, so Ack is a no-op and delivery is at most once.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/shared/logging"
)

type natsSource struct {
	name         string
	pipelineName string
	url          string
	subject      string
	queue        string
	natsOpts     []natslib.Option
	logger       *zap.SugaredLogger
	natsConn     *natslib.Conn
	sub          *natslib.Subscription
	bufferSize   int
	messages     chan *isb.ReadMessage
	readTimeout  time.Duration
	// done is closed on Close so that the subscription callback never blocks forever
	done      chan struct{}
	closeOnce sync.Once
}

// NewNatsSource returns a nats source, it connects and subscribes when started.
func NewNatsSource(name, url, subject, queue string, opts ...Option) (*natsSource, error) {
	if url == "" || subject == "" {
		return nil, errors.New("nats source requires a url and a subject")
	}
	n := &natsSource{
		name:         name,
		pipelineName: "default",
		url:          url,
		subject:      subject,
		queue:        queue,
		bufferSize:   1000,            // default size
		readTimeout:  1 * time.Second, // default timeout
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		if err := o(n); err != nil {
			return nil, err
		}
	}
	if n.logger == nil {
		n.logger = logging.NewLogger()
	}
	n.logger = n.logger.With("source", name, "subject", subject)
	n.messages = make(chan *isb.ReadMessage, n.bufferSize)
	return n, nil
}

type Option func(*natsSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *natsSource) error {
		o.logger = l
		return nil
	}
}

// WithBufferSize sets the buffer size for storing the messages from nats
func WithBufferSize(s int) Option {
	return func(o *natsSource) error {
		if s < 1 {
			return fmt.Errorf("nats source buffer size must be positive, got %d", s)
		}
		o.bufferSize = s
		return nil
	}
}

// WithReadTimeout sets the read timeout
func WithReadTimeout(t time.Duration) Option {
	return func(o *natsSource) error {
		o.readTimeout = t
		return nil
	}
}

// WithPipelineName sets the pipeline name used to label metrics
func WithPipelineName(name string) Option {
	return func(o *natsSource) error {
		o.pipelineName = name
		return nil
	}
}

// WithBasicAuth authenticates with a user and password
func WithBasicAuth(user, password string) Option {
	return func(o *natsSource) error {
		o.natsOpts = append(o.natsOpts, natslib.UserInfo(user, password))
		return nil
	}
}

// WithToken authenticates with a token
func WithToken(token string) Option {
	return func(o *natsSource) error {
		o.natsOpts = append(o.natsOpts, natslib.Token(token))
		return nil
	}
}

func (ns *natsSource) GetName() string {
	return ns.name
}

// Start connects to the server and subscribes to the subject.
func (ns *natsSource) Start(_ context.Context) error {
	opt := append([]natslib.Option{
		natslib.MaxReconnects(-1),
		natslib.ReconnectWait(3 * time.Second),
		natslib.DisconnectErrHandler(func(c *natslib.Conn, err error) {
			ns.logger.Errorw("Nats disconnected", zap.Error(err))
		}),
		natslib.ReconnectHandler(func(c *natslib.Conn) {
			ns.logger.Info("Nats reconnected")
		}),
	}, ns.natsOpts...)

	ns.logger.Info("Connecting to nats service...")
	conn, err := natslib.Connect(ns.url, opt...)
	if err != nil {
		return fmt.Errorf("failed to connect to nats server, %w", err)
	}
	ns.natsConn = conn
	sub, err := ns.natsConn.QueueSubscribe(ns.subject, ns.queue, ns.onMessage)
	if err != nil {
		ns.natsConn.Close()
		return fmt.Errorf("failed to QueueSubscribe nats messages, %w", err)
	}
	ns.sub = sub
	return nil
}

func (ns *natsSource) onMessage(msg *natslib.Msg) {
	id := uuid.New().String()
	m := isb.Message{
		Header: isb.Header{
			// the event time is carried in the payload, this is the arrival time
			EventTime: time.Now(),
			ID:        id,
			Key:       msg.Header.Get("key"),
		},
		Body: isb.Body{Payload: msg.Data},
	}
	select {
	case ns.messages <- m.ToReadMessage(isb.SimpleStringOffset(func() string { return id })):
	case <-ns.done:
		natsSourceDropCount.With(map[string]string{metrics.LabelComponentName: ns.name, metrics.LabelPipeline: ns.pipelineName}).Inc()
	}
}

func (ns *natsSource) Read(ctx context.Context, count int64) ([]*isb.ReadMessage, error) {
	var msgs []*isb.ReadMessage
	timeout := time.After(ns.readTimeout)
loop:
	for i := int64(0); i < count; i++ {
		select {
		case m := <-ns.messages:
			natsSourceReadCount.With(map[string]string{metrics.LabelComponentName: ns.name, metrics.LabelPipeline: ns.pipelineName}).Inc()
			msgs = append(msgs, m)
		case <-timeout:
			ns.logger.Debugw("Timed out waiting for messages to read.", zap.Duration("waited", ns.readTimeout), zap.Int("read", len(msgs)))
			break loop
		case <-ctx.Done():
			break loop
		}
	}
	return msgs, nil
}

func (ns *natsSource) Ack(_ context.Context, offsets []isb.Offset) []error {
	return make([]error, len(offsets))
}

// IsHealthy reports whether the connection is up.
func (ns *natsSource) IsHealthy(_ context.Context) error {
	if ns.natsConn == nil || !ns.natsConn.IsConnected() {
		return errors.New("nats source is not connected")
	}
	return nil
}

func (ns *natsSource) Close() error {
	ns.closeOnce.Do(func() {
		ns.logger.Info("Shutting down nats source server...")
		close(ns.done)
		if ns.sub != nil {
			if err := ns.sub.Unsubscribe(); err != nil {
				ns.logger.Errorw("Failed to unsubscribe nats subscription", zap.Error(err))
			}
		}
		if ns.natsConn != nil {
			ns.natsConn.Close()
		}
		ns.logger.Info("Nats source server shutdown")
	})
	return nil
}
