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

package kafka

import (
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// consumerHandler hands the claimed messages over to the reader and keeps the current session for acks.
type consumerHandler struct {
	ready       chan struct{}
	readyCloser sync.Once
	messages    chan *sarama.ConsumerMessage
	// sessLock keeps acks from racing with the session teardown
	sessLock sync.RWMutex
	sess     sarama.ConsumerGroupSession
	logger   *zap.SugaredLogger
}

// new handler initializes the channel for passing messages
func newConsumerHandler(readChanSize int, logger *zap.SugaredLogger) *consumerHandler {
	return &consumerHandler{
		ready:    make(chan struct{}),
		messages: make(chan *sarama.ConsumerMessage, readChanSize),
		logger:   logger,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *consumerHandler) Setup(sess sarama.ConsumerGroupSession) error {
	consumer.sessLock.Lock()
	consumer.sess = sess
	consumer.sessLock.Unlock()
	consumer.readyCloser.Do(func() {
		close(consumer.ready)
	})
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *consumerHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	// waits for the inflight acks to be marked
	consumer.sessLock.Lock()
	defer consumer.sessLock.Unlock()
	sess.Commit()
	consumer.sess = nil
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case consumer.messages <- msg:
			case <-session.Context().Done():
				return nil
			}
		case <-session.Context().Done():
			consumer.logger.Info("context was canceled, stopping consumer claim")
			return nil
		}
	}
}

// markOffsets marks the offsets as consumed in the current session. It returns false if there is no session.
func (consumer *consumerHandler) markOffsets(offsets []*kafkaOffset) bool {
	consumer.sessLock.RLock()
	defer consumer.sessLock.RUnlock()
	if consumer.sess == nil {
		return false
	}
	for _, o := range offsets {
		// the committed offset is the next one to consume
		consumer.sess.MarkOffset(o.topic, o.partitionIdx, o.offset+1, "")
	}
	return true
}
