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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupEnvStringOr(t *testing.T) {
	assert.Equal(t, "hello", LookupEnvStringOr("fake_env", "hello"))
	t.Setenv("PAGECOUNT_TEST_STR", "world")
	assert.Equal(t, "world", LookupEnvStringOr("PAGECOUNT_TEST_STR", "hello"))
}

func TestLookupEnvBoolOr(t *testing.T) {
	assert.True(t, LookupEnvBoolOr("fake_env", true))
	t.Setenv("PAGECOUNT_TEST_BOOL", "false")
	assert.False(t, LookupEnvBoolOr("PAGECOUNT_TEST_BOOL", true))
	t.Setenv("PAGECOUNT_TEST_BOOL", "yes")
	assert.Panics(t, func() { LookupEnvBoolOr("PAGECOUNT_TEST_BOOL", true) })
}
