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

// Package isb defines the envelope a source hands to the forwarder: the raw payload, its key and the offset to
// acknowledge once the payload has been processed.
package isb

import (
	"time"
)

// Header is the header of the message
type Header struct {
	// EventTime is the time the source attached to the message, it is not the event time of the page event.
	EventTime time.Time
	// ID uniquely identifies the message within its source.
	ID string
	// Key is the key the source received the message with, if any.
	Key string
}

// Body is the body of the message
type Body struct {
	Payload []byte
}

// Message is the raw message read from a source.
type Message struct {
	Header
	Body
}

// ReadMessage is the message read from the source along with its offset.
type ReadMessage struct {
	Message
	ReadOffset Offset
}

// ToReadMessage converts Message to a ReadMessage by providing the offset.
func (m *Message) ToReadMessage(ot Offset) *ReadMessage {
	return &ReadMessage{Message: *m, ReadOffset: ot}
}
