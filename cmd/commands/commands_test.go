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

package commands

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/pagecount/pkg/config"
	"github.com/numaproj/pagecount/pkg/event"
	"github.com/numaproj/pagecount/pkg/isb"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
)

func Test_Commands(t *testing.T) {
	t.Run("root execute", func(t *testing.T) {
		rootCmd.SetArgs([]string{"help"})
		assert.NotPanics(t, Execute)
	})

	t.Run("test root", func(t *testing.T) {
		b := bytes.NewBufferString("")
		rootCmd.SetOut(b)
		rootCmd.SetArgs([]string{"help"})
		Execute()
		output, _ := io.ReadAll(b)
		assert.Contains(t, string(output), "Available Commands")
		assert.Contains(t, string(output), "start")
	})

	t.Run("Version", func(t *testing.T) {
		cmd := NewVersionCommand()
		b := bytes.NewBufferString("")
		cmd.SetOut(b)
		cmd.SetArgs([]string{"--short"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, b.String(), "+")
	})

	t.Run("Start", func(t *testing.T) {
		cmd := NewStartCommand()
		assert.True(t, cmd.HasLocalFlags())
		assert.Equal(t, "start", cmd.Use)
		assert.Equal(t, "string", cmd.Flag("config").Value.Type())
	})
}

func Test_newEngine(t *testing.T) {
	cfg, err := config.FromYAMLString(`filterExpression: 'json(payload).user == "U1"'`)
	require.NoError(t, err)
	engine, err := newEngine(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, engine.Spec().Size)

	for _, pe := range []event.PageEvent{
		{Name: "P1", User: "U1", Timestamp: time.Unix(1, 0), Duration: 150},
		{Name: "P1", User: "U2", Timestamp: time.Unix(2, 0), Duration: 150},
		{Name: "P1", User: "U1", Timestamp: time.Unix(3, 0), Duration: 50},
	} {
		pe := pe
		_, err := engine.Process(&event.Event{Payload: pe})
		require.NoError(t, err)
	}
	results, err := engine.Shutdown()
	require.NoError(t, err)
	require.Len(t, results, 1)
	// only U1 with a long enough duration is counted
	assert.Equal(t, int64(1), results[0].Count)

	cfg.FilterExpression = "json(payload).user =="
	_, err = newEngine(cfg, nil)
	assert.Error(t, err)
}

func Test_run(t *testing.T) {
	cfg, err := config.FromYAMLString(`
windowSize: 1s
source:
  type: generator
  generator:
    rpu: 50
    duration: 100ms
    seed: 1
sink:
  type: blackhole
metrics:
  port: 0
`)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	assert.NoError(t, run(ctx, cfg))
}

type closeRecorder struct {
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

type idleSource struct {
	closeRecorder
}

func (s *idleSource) GetName() string { return "idle" }

func (s *idleSource) Start(context.Context) error { return nil }

func (s *idleSource) Read(context.Context, int64) ([]*isb.ReadMessage, error) { return nil, nil }

func (s *idleSource) Ack(_ context.Context, offsets []isb.Offset) []error {
	return make([]error, len(offsets))
}

type idleSink struct {
	closeRecorder
}

func (s *idleSink) GetName() string { return "idle" }

func (s *idleSink) Write(_ context.Context, results []emitter.Result) []error {
	return make([]error, len(results))
}

func Test_serve_MetricsPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Metrics.Port = ln.Addr().(*net.TCPAddr).Port
	engine, err := newEngine(cfg, nil)
	require.NoError(t, err)
	source, sink := &idleSource{}, &idleSink{}

	err = serve(context.Background(), cfg, engine, source, sink)
	assert.ErrorContains(t, err, "failed to start metrics server")
	assert.True(t, source.closed)
	assert.True(t, sink.closed)
}
