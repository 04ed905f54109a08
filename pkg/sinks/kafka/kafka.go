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

// Package kafka implements a sink producing every window result to a Kafka topic, keyed by group key.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	"github.com/numaproj/pagecount/pkg/shared/logging"
	"github.com/numaproj/pagecount/pkg/shared/util"
)

// ToKafka produce the output to a kafka sinks.
type ToKafka struct {
	name         string
	pipelineName string
	producer     sarama.SyncProducer
	topic        string
	saramaConfig string
	log          *zap.SugaredLogger
	concurrency  uint32
}

type Option func(*ToKafka) error

type sinkMessage struct {
	index   int
	message *sarama.ProducerMessage
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToKafka) error {
		t.log = log
		return nil
	}
}

func WithPipelineName(name string) Option {
	return func(t *ToKafka) error {
		t.pipelineName = name
		return nil
	}
}

// WithConcurrency sets the number of concurrent producer calls of a Write
func WithConcurrency(c uint32) Option {
	return func(t *ToKafka) error {
		if c == 0 {
			return errors.New("kafka sink concurrency must be positive")
		}
		t.concurrency = c
		return nil
	}
}

// WithSaramaConfig sets the sarama config from a YAML string
func WithSaramaConfig(yaml string) Option {
	return func(t *ToKafka) error {
		t.saramaConfig = yaml
		return nil
	}
}

// NewToKafka returns ToKafka type.
func NewToKafka(name string, brokers []string, topic string, opts ...Option) (*ToKafka, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka sink requires brokers and a topic")
	}
	toKafka, err := newToKafka(name, topic, opts...)
	if err != nil {
		return nil, err
	}
	config, err := util.GetSaramaConfigFromYAMLString(toKafka.saramaConfig)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer. %w", err)
	}
	toKafka.producer = producer
	return toKafka, nil
}

func newToKafka(name, topic string, opts ...Option) (*ToKafka, error) {
	toKafka := &ToKafka{
		name:         name,
		pipelineName: "default",
		topic:        topic,
		concurrency:  1,
	}
	//apply options for kafka sink
	for _, o := range opts {
		if err := o(toKafka); err != nil {
			return nil, err
		}
	}
	//set default logger
	if toKafka.log == nil {
		toKafka.log = logging.NewLogger()
	}
	toKafka.log = toKafka.log.With("sinkType", "kafka").With("topic", topic)
	return toKafka, nil
}

// GetName returns the name.
func (tk *ToKafka) GetName() string {
	return tk.name
}

// Write writes to the kafka topic.
func (tk *ToKafka) Write(_ context.Context, results []emitter.Result) []error {
	errs := make([]error, len(results))
	wg := new(sync.WaitGroup)

	sinkCh := make(chan *sinkMessage)

	for i := uint32(0); i < tk.concurrency; i++ {
		wg.Add(1)
		go func(msgCh chan *sinkMessage) {
			defer wg.Done()
			for message := range msgCh {
				_, _, err := tk.producer.SendMessage(message.message)
				if err != nil {
					kafkaSinkWriteErrors.With(map[string]string{metrics.LabelComponentName: tk.name, metrics.LabelPipeline: tk.pipelineName}).Inc()
					tk.log.Errorw("SendMessage failed", zap.Error(err), zap.Int("index", message.index))
				} else {
					kafkaSinkWriteCount.With(map[string]string{metrics.LabelComponentName: tk.name, metrics.LabelPipeline: tk.pipelineName}).Inc()
				}
				//keep error in message index
				errs[message.index] = err
			}
		}(sinkCh)
	}
	for idx, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			errs[idx] = fmt.Errorf("failed to marshal result %s, %w", r, err)
			continue
		}
		message := &sarama.ProducerMessage{
			Topic: tk.topic,
			Key:   sarama.StringEncoder(r.GroupKey),
			Value: sarama.ByteEncoder(payload),
		}
		sinkCh <- &sinkMessage{index: idx, message: message}
	}
	close(sinkCh)
	wg.Wait()
	return errs
}

func (tk *ToKafka) Close() error {
	tk.log.Info("Closing kafka producer...")
	return tk.producer.Close()
}
