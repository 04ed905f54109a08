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

package util

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultRetryBackoff is used while the pipeline is running, a failed attempt is retried until the
// context is cancelled, Steps only bounds how far the interval grows.
var DefaultRetryBackoff = wait.Backoff{
	Steps:    10,
	Duration: 100 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
	Cap:      10 * time.Second,
}

// DrainRetryBackoff bounds retries once the pipeline is shutting down.
var DrainRetryBackoff = wait.Backoff{
	Steps:    5,
	Duration: 50 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}
