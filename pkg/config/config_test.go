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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "default", c.PipelineName)
	assert.Equal(t, 5*time.Second, c.WindowSize)
	assert.Equal(t, time.Duration(0), c.Grace)
	assert.Equal(t, time.Duration(0), c.AllowedLateness)
	assert.Equal(t, int64(100), c.DurationThreshold)
	assert.Equal(t, 0, c.MaxEntries)
	assert.Equal(t, int64(100), c.ReadBatchSize)
	assert.Equal(t, SourceTypeGenerator, c.Source.Type)
	assert.Equal(t, int64(5), c.Source.Generator.RPU)
	assert.Equal(t, SinkTypeLog, c.Sink.Type)
	assert.Equal(t, 2469, c.Metrics.Port)
}

func TestFromYAMLString(t *testing.T) {
	c, err := FromYAMLString(`
pipelineName: pages
windowSize: 1m
grace: 10s
allowedLateness: 2s
durationThreshold: 50
maxEntries: 1000
filterExpression: 'json(payload).user == "U1"'
source:
  type: kafka
  kafka:
    brokers: ["localhost:9092"]
    topic: page-events
    config: |
      consumer:
        fetch:
          min: 1
sink:
  type: redis
  redis:
    addrs: ["localhost:6379"]
    prefix: counts
    ttl: 1h
`)
	require.NoError(t, err)
	assert.Equal(t, "pages", c.PipelineName)
	assert.Equal(t, time.Minute, c.WindowSize)
	assert.Equal(t, 10*time.Second, c.Grace)
	assert.Equal(t, 2*time.Second, c.AllowedLateness)
	assert.Equal(t, int64(50), c.DurationThreshold)
	assert.Equal(t, 1000, c.MaxEntries)
	assert.Equal(t, `json(payload).user == "U1"`, c.FilterExpression)
	assert.Equal(t, []string{"localhost:9092"}, c.Source.Kafka.Brokers)
	assert.Equal(t, "page-events", c.Source.Kafka.Topic)
	assert.Equal(t, "pagecount", c.Source.Kafka.GroupName)
	assert.Contains(t, c.Source.Kafka.Config, "fetch")
	assert.Equal(t, []string{"localhost:6379"}, c.Sink.Redis.Addrs)
	assert.Equal(t, "counts", c.Sink.Redis.Prefix)
	assert.Equal(t, time.Hour, c.Sink.Redis.TTL)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecount.yaml")
	require.NoError(t, os.WriteFile(path, []byte("windowSize: 10s\nsink:\n  type: blackhole\n"), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, c.WindowSize)
	assert.Equal(t, SinkTypeBlackhole, c.Sink.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PAGECOUNT_WINDOWSIZE", "30s")
	t.Setenv("PAGECOUNT_SINK_TYPE", "blackhole")
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.WindowSize)
	assert.Equal(t, SinkTypeBlackhole, c.Sink.Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "zero window", yaml: "windowSize: 0s"},
		{name: "negative grace", yaml: "grace: -1s"},
		{name: "negative lateness", yaml: "allowedLateness: -1s"},
		{name: "negative max entries", yaml: "maxEntries: -1"},
		{name: "zero batch", yaml: "readBatchSize: 0"},
		{name: "unknown source", yaml: "source:\n  type: file"},
		{name: "kafka source without topic", yaml: "source:\n  type: kafka\n  kafka:\n    brokers: [\"b:9092\"]"},
		{name: "nats source without url", yaml: "source:\n  type: nats"},
		{name: "unknown sink", yaml: "sink:\n  type: stdout"},
		{name: "redis sink without addrs", yaml: "sink:\n  type: redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAMLString(tt.yaml)
			assert.Error(t, err)
		})
	}
}
