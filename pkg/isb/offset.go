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

package isb

import (
	"strconv"
)

// Offset is the position of a message in its source.
type Offset interface {
	// String return the offset identifier
	String() string
	// AckIt is to ack the offset.
	// This is needed for the offset implementations that require ack after processing the message.
	AckIt() error
}

// SimpleStringOffset is an Offset convenient function for implementations without needing AckIt() when offset is a string.
type SimpleStringOffset func() string

func (so SimpleStringOffset) String() string {
	return so()
}

func (so SimpleStringOffset) AckIt() error {
	return nil
}

// SimpleIntOffset is an Offset convenient function for implementations without needing AckIt() when offset is a int64.
type SimpleIntOffset func() int64

func (si SimpleIntOffset) String() string {
	return strconv.FormatInt(si(), 10)
}

func (si SimpleIntOffset) AckIt() error {
	return nil
}

// DeduplicateOffsets removes offsets with the same identifier, keeping the first occurrence.
func DeduplicateOffsets(offsets []Offset) []Offset {
	seen := make(map[string]struct{}, len(offsets))
	out := make([]Offset, 0, len(offsets))
	for _, o := range offsets {
		if _, ok := seen[o.String()]; ok {
			continue
		}
		seen[o.String()] = struct{}{}
		out = append(out, o)
	}
	return out
}
