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

package forward

import (
	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
)

// Processor counts events into windows, reduce.Engine implements it.
type Processor interface {
	// Process counts an event and returns the results of the windows it closed.
	Process(ev *event.Event) ([]emitter.Result, error)
	// Shutdown closes every open window and returns their results.
	Shutdown() ([]emitter.Result, error)
}

// StarterStopper runs the forwarding until stopped.
type StarterStopper interface {
	Start() <-chan error
	Stop()
	ForceStop()
}
