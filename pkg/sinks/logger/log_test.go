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

package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
)

func TestToLog_Write(t *testing.T) {
	var buf bytes.Buffer
	toLog, err := NewToLog("log-test", WithWriter(&buf), WithPipelineName("log-pipeline"))
	require.NoError(t, err)
	assert.Equal(t, "log-test", toLog.GetName())

	results := []emitter.Result{
		{GroupKey: "P1", WindowStart: time.Unix(0, 0), WindowEnd: time.Unix(5, 0), Count: 2},
		{GroupKey: "P1", WindowStart: time.Unix(5, 0), WindowEnd: time.Unix(10, 0), Count: 1},
	}
	errs := toLog.Write(context.Background(), results)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	out := buf.String()
	assert.Contains(t, out, "(log-test)")
	assert.Contains(t, out, "[00:00:00.000, 00:00:05.000)")
	assert.Contains(t, out, "Count -  2")
	assert.Equal(t, float64(2), testutil.ToFloat64(logSinkWriteCount.With(map[string]string{metrics.LabelComponentName: "log-test", metrics.LabelPipeline: "log-pipeline"})))
	assert.NoError(t, toLog.Close())
}
