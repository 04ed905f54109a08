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

package applier

import (
	"github.com/numaproj/pagecount/pkg/event"
)

// Projector re-keys an accepted event, returning the group key and the value carried along with it.
type Projector interface {
	Project(e *event.Event) (key string, value int64, err error)
}

// ProjectFunc utility function used to create a Projector implementation
type ProjectFunc func(e *event.Event) (string, int64, error)

func (p ProjectFunc) Project(e *event.Event) (string, int64, error) {
	return p(e)
}

// NameProjector keys events by page name and carries the duration.
type NameProjector struct{}

var _ Projector = NameProjector{}

func (NameProjector) Project(e *event.Event) (string, int64, error) {
	if e.Payload.Name == "" {
		return "", 0, &event.MalformedEventErr{Reason: "empty page name"}
	}
	return e.Payload.Name, e.Payload.Duration, nil
}
