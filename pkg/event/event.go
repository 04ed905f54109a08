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

// Package event defines the page event counted by the engine and its JSON encoding.
package event

import (
	"fmt"
	"time"
)

// PageEvent records a user viewing a page for a number of milliseconds.
type PageEvent struct {
	Name      string
	User      string
	Timestamp time.Time
	Duration  int64
}

// Event is a PageEvent along with the key its source delivered it with. Events are never mutated once decoded.
type Event struct {
	SourceKey string
	Payload   PageEvent
}

// EventTime returns the event time of the page event.
func (e *Event) EventTime() time.Time {
	return e.Payload.Timestamp
}

// Validate returns a *MalformedEventErr if a field required for counting is missing.
func (e *Event) Validate() error {
	if e == nil {
		return &MalformedEventErr{Reason: "nil event"}
	}
	if e.Payload.Name == "" {
		return &MalformedEventErr{Reason: "empty page name"}
	}
	if e.Payload.Timestamp.IsZero() {
		return &MalformedEventErr{Reason: "missing timestamp"}
	}
	return nil
}

// MalformedEventErr is returned for events that cannot be counted.
type MalformedEventErr struct {
	Reason string
	Err    error
}

func (e *MalformedEventErr) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed event: %s", e.Reason)
}

func (e *MalformedEventErr) Unwrap() error {
	return e.Err
}
