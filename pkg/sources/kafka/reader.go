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

// Package kafka implements a source reading page events from a Kafka topic with a consumer group.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/shared/logging"
	sharedutil "github.com/numaproj/pagecount/pkg/shared/util"
	sourceerrors "github.com/numaproj/pagecount/pkg/sources/errors"
)

type kafkaSource struct {
	// name of the source
	name string
	// name of the pipeline
	pipelineName string
	// consumer group name
	groupName string
	// topic to consume messages from
	topic string
	// kafka brokers
	brokers []string
	// context cancel function
	cancelFn context.CancelFunc
	// handler for a kafka consumer group
	handler *consumerHandler
	// sarama config for kafka consumer group
	config *sarama.Config
	// sarama client, set once started
	client sarama.Client
	// logger
	logger *zap.SugaredLogger
	// channel to indicate that the consumer has exited
	stopCh chan struct{}
	// size of the buffer that holds consumed but yet to be read messages
	handlerBuffer int
	// read timeout for Read
	readTimeout time.Duration
}

// kafkaOffset implements isb.Offset
// we need topic information to ack the message
type kafkaOffset struct {
	offset       int64
	partitionIdx int32
	topic        string
}

func (k *kafkaOffset) String() string {
	return fmt.Sprintf("%s:%d:%d", k.topic, k.partitionIdx, k.offset)
}

// AckIt acking is taken care by the consumer group
func (k *kafkaOffset) AckIt() error {
	return nil
}

type Option func(*kafkaSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *kafkaSource) error {
		o.logger = l
		return nil
	}
}

// WithBufferSize is used to return size of message channel information
func WithBufferSize(s int) Option {
	return func(o *kafkaSource) error {
		o.handlerBuffer = s
		return nil
	}
}

// WithReadTimeOut is used to set the read timeout
func WithReadTimeOut(t time.Duration) Option {
	return func(o *kafkaSource) error {
		o.readTimeout = t
		return nil
	}
}

// WithGroupName is used to set the group name
func WithGroupName(gn string) Option {
	return func(o *kafkaSource) error {
		o.groupName = gn
		return nil
	}
}

// WithPipelineName sets the pipeline name used to label metrics
func WithPipelineName(name string) Option {
	return func(o *kafkaSource) error {
		o.pipelineName = name
		return nil
	}
}

// WithSaramaConfig sets the sarama config from a YAML string
func WithSaramaConfig(yaml string) Option {
	return func(o *kafkaSource) error {
		config, err := configFromOpts(yaml)
		if err != nil {
			return fmt.Errorf("error reading kafka source config, %w", err)
		}
		o.config = config
		return nil
	}
}

// NewKafkaSource returns a kafka source reader based on a Kafka consumer group. Nothing is consumed until it is
// started.
func NewKafkaSource(name string, brokers []string, topic string, opts ...Option) (*kafkaSource, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka source requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka source requires a topic")
	}
	ks := &kafkaSource{
		name:          name,
		pipelineName:  "default",
		groupName:     name,
		topic:         topic,
		brokers:       brokers,
		readTimeout:   1 * time.Second, // default timeout
		handlerBuffer: 100,             // default buffer size for kafka reads
		stopCh:        make(chan struct{}),
		cancelFn:      func() {},
	}
	for _, o := range opts {
		if err := o(ks); err != nil {
			return nil, err
		}
	}
	if ks.logger == nil {
		ks.logger = logging.NewLogger()
	}
	ks.logger = ks.logger.With("source", name, "topic", topic)
	if ks.config == nil {
		config, err := configFromOpts("")
		if err != nil {
			return nil, err
		}
		ks.config = config
	}
	// return errors from the underlying kafka client using the Errors channel
	ks.config.Consumer.Return.Errors = true
	ks.handler = newConsumerHandler(ks.handlerBuffer, ks.logger)
	return ks, nil
}

func configFromOpts(yamlConfig string) (*sarama.Config, error) {
	config, err := sharedutil.GetSaramaConfigFromYAMLString(yamlConfig)
	if err != nil {
		return nil, err
	}
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	return config, nil
}

func (r *kafkaSource) GetName() string {
	return r.name
}

// Start connects to the brokers and joins the consumer group. It returns once the first session is set up.
func (r *kafkaSource) Start(ctx context.Context) error {
	client, err := sarama.NewClient(r.brokers, r.config)
	if err != nil {
		return fmt.Errorf("failed to create sarama client, %w", err)
	}
	group, err := sarama.NewConsumerGroupFromClient(r.groupName, client)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to create consumer group %q, %w", r.groupName, err)
	}
	r.client = client

	cctx, cancel := context.WithCancel(ctx)
	r.cancelFn = cancel
	go r.startConsumer(cctx, group)

	// wait for the consumer to setup.
	select {
	case <-r.handler.ready:
		r.logger.Info("Consumer ready. Starting kafka reader...")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *kafkaSource) startConsumer(ctx context.Context, group sarama.ConsumerGroup) {
	defer close(r.stopCh)
	r.logger.Infow("Starting consumer group", zap.String("consumerGroupName", r.groupName), zap.Strings("brokers", r.brokers))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case cErr, ok := <-group.Errors():
				if !ok {
					return
				}
				r.logger.Errorw("Kafka consumer error", zap.Error(cErr))
			}
		}
	}()

	for {
		// `Consume` should be called inside an infinite loop; when a
		// server-side re-balance happens, the consumer session will need to be
		// recreated to get the new claims
		if conErr := group.Consume(ctx, []string{r.topic}, r.handler); conErr != nil {
			if errors.Is(conErr, sarama.ErrClosedConsumerGroup) {
				break
			}
			r.logger.Errorw("Kafka consumer failed, retrying", zap.Error(conErr))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		// check if context was cancelled, signaling that the consumer should stop
		if ctx.Err() != nil {
			break
		}
	}
	if err := group.Close(); err != nil {
		r.logger.Errorw("Error in closing consumer group", zap.Error(err))
	}
	<-done
}

func (r *kafkaSource) Read(ctx context.Context, count int64) ([]*isb.ReadMessage, error) {
	msgs := make([]*isb.ReadMessage, 0, count)
	timeout := time.After(r.readTimeout)
loop:
	for i := int64(0); i < count; i++ {
		select {
		case m := <-r.handler.messages:
			kafkaSourceReadCount.With(map[string]string{metrics.LabelComponentName: r.name, metrics.LabelPipeline: r.pipelineName}).Inc()
			msgs = append(msgs, toReadMessage(m))
		case <-timeout:
			// log that timeout has happened and don't return an error
			r.logger.Debugw("Timed out waiting for messages to read.", zap.Duration("waited", r.readTimeout))
			break loop
		case <-ctx.Done():
			break loop
		}
	}
	return msgs, nil
}

// Ack marks the offsets in the current consumer group session, the session commits them.
func (r *kafkaSource) Ack(_ context.Context, offsets []isb.Offset) []error {
	errs := make([]error, len(offsets))
	kos := make([]*kafkaOffset, 0, len(offsets))
	for i, offset := range offsets {
		ko, ok := offset.(*kafkaOffset)
		if !ok {
			kafkaSourceOffsetAckErrors.With(map[string]string{metrics.LabelComponentName: r.name, metrics.LabelPipeline: r.pipelineName}).Inc()
			errs[i] = &sourceerrors.SourceAckErr{Message: fmt.Sprintf("unexpected offset type %T", offset)}
			continue
		}
		kos = append(kos, ko)
	}
	if !r.handler.markOffsets(kos) {
		// the offsets will be redelivered to whoever owns the partition next
		kafkaSourceOffsetAckErrors.With(map[string]string{metrics.LabelComponentName: r.name, metrics.LabelPipeline: r.pipelineName}).Add(float64(len(kos)))
		err := &sourceerrors.SourceAckErr{Message: "no active consumer group session", Retryable: true}
		for i := range errs {
			if errs[i] == nil {
				errs[i] = err
			}
		}
		return errs
	}
	kafkaSourceAckCount.With(map[string]string{metrics.LabelComponentName: r.name, metrics.LabelPipeline: r.pipelineName}).Add(float64(len(kos)))
	return errs
}

// IsHealthy reports whether the client is connected to at least one broker.
func (r *kafkaSource) IsHealthy(_ context.Context) error {
	if r.client == nil || r.client.Closed() {
		return errors.New("kafka source is not connected")
	}
	if len(r.client.Brokers()) == 0 {
		return errors.New("kafka source has no brokers available")
	}
	return nil
}

func (r *kafkaSource) Close() error {
	r.logger.Info("Closing kafka reader...")
	r.cancelFn()
	if r.client != nil {
		<-r.stopCh
		if !r.client.Closed() {
			if err := r.client.Close(); err != nil {
				r.logger.Errorw("Error in closing kafka client", zap.Error(err))
			}
		}
	}
	r.logger.Info("Kafka reader closed")
	return nil
}

func toReadMessage(m *sarama.ConsumerMessage) *isb.ReadMessage {
	readOffset := &kafkaOffset{
		offset:       m.Offset,
		partitionIdx: m.Partition,
		topic:        m.Topic,
	}
	msg := isb.Message{
		Header: isb.Header{
			EventTime: m.Timestamp,
			ID:        readOffset.String(),
			Key:       string(m.Key),
		},
		Body: isb.Body{Payload: m.Value},
	}
	return msg.ToReadMessage(readOffset)
}
