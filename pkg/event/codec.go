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

package event

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
)

// wirePageEvent is the JSON shape of a PageEvent.
type wirePageEvent struct {
	Name      string    `json:"name"`
	User      string    `json:"user"`
	Timestamp timestamp `json:"timestamp"`
	Duration  *int64    `json:"duration"`
}

// timestamp is encoded as epoch milliseconds. Decoding also accepts any date string dateparse understands,
// strings without a zone are read as UTC.
type timestamp time.Time

func (t timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(time.Time(t).UnixMilli(), 10)), nil
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = timestamp(time.Time{})
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*t = timestamp(time.Time{})
			return nil
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		*t = timestamp(parsed)
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %s: %w", string(b), err)
	}
	*t = timestamp(time.UnixMilli(ms).UTC())
	return nil
}

// Decode unmarshals a JSON encoded PageEvent. A missing duration is malformed, the other missing fields are left
// zero and caught by Validate.
func Decode(sourceKey string, payload []byte) (*Event, error) {
	var w wirePageEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, &MalformedEventErr{Reason: "invalid json", Err: err}
	}
	if w.Duration == nil {
		return nil, &MalformedEventErr{Reason: "missing duration"}
	}
	return &Event{
		SourceKey: sourceKey,
		Payload: PageEvent{
			Name:      w.Name,
			User:      w.User,
			Timestamp: time.Time(w.Timestamp),
			Duration:  *w.Duration,
		},
	}, nil
}

// Encode marshals a PageEvent into JSON.
func Encode(p PageEvent) ([]byte, error) {
	return json.Marshal(wirePageEvent{
		Name:      p.Name,
		User:      p.User,
		Timestamp: timestamp(p.Timestamp),
		Duration:  &p.Duration,
	})
}
