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
	"fmt"
	"sync"
	"time"
)

// Shutdown tracks and enforces the shutdown activity.
type Shutdown struct {
	startShutdown      bool
	forceShutdown      bool
	initiateTime       time.Time
	shutdownRequestCtr int
	rwlock             *sync.RWMutex
}

// IsShuttingDown returns whether we can stop processing.
func (df *DataForward) IsShuttingDown() bool {
	df.Shutdown.rwlock.RLock()
	defer df.Shutdown.rwlock.RUnlock()
	return df.Shutdown.forceShutdown || df.Shutdown.startShutdown
}

func (s *Shutdown) String() string {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return fmt.Sprintf("startShutdown:%t forceShutdown:%t shutdownRequestCtr:%d initiateTime:%s",
		s.startShutdown, s.forceShutdown, s.shutdownRequestCtr, s.initiateTime)
}

// Stop stops reading. What has been read is still counted, every open window is flushed and written to the sink.
func (df *DataForward) Stop() {
	df.Shutdown.rwlock.Lock()
	defer df.Shutdown.rwlock.Unlock()
	if df.Shutdown.initiateTime.IsZero() {
		df.Shutdown.initiateTime = time.Now()
	}
	df.Shutdown.startShutdown = true
	df.Shutdown.shutdownRequestCtr++
	// call cancel
	df.cancelFn()
}

// ForceStop stops and gives up on results the sink has not accepted yet.
func (df *DataForward) ForceStop() {
	df.Stop()
	df.Shutdown.rwlock.Lock()
	defer df.Shutdown.rwlock.Unlock()
	df.Shutdown.forceShutdown = true
	df.forceCancelFn()
}
