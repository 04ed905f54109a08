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

package nats

import (
	"context"
	"testing"
	"time"

	natslib "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natstest "github.com/numaproj/pagecount/pkg/shared/clients/nats/test"
)

func Test_Single(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	ns, err := NewNatsSource("nats-in", server.ClientURL(), "pages", "pages-queue", WithReadTimeout(200*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, ns.Start(context.Background()))
	defer func() { _ = ns.Close() }()
	assert.NoError(t, ns.IsHealthy(context.Background()))

	nc, err := natslib.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	for i := 0; i < 3; i++ {
		msg := natslib.NewMsg("pages")
		msg.Header.Set("key", "P1")
		msg.Data = []byte(`{"name":"P1","user":"U1","timestamp":1000,"duration":150}`)
		require.NoError(t, nc.PublishMsg(msg))
	}
	require.NoError(t, nc.Flush())

	var read int
	deadline := time.Now().Add(5 * time.Second)
	for read < 3 && time.Now().Before(deadline) {
		msgs, err := ns.Read(context.Background(), 3)
		require.NoError(t, err)
		for _, m := range msgs {
			assert.Equal(t, "P1", m.Key)
			assert.Equal(t, m.ID, m.ReadOffset.String())
		}
		read += len(msgs)
		assert.Len(t, ns.Ack(context.Background(), nil), 0)
	}
	assert.Equal(t, 3, read)
}

func Test_QueueGroup(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	var sources []*natsSource
	for _, name := range []string{"a", "b"} {
		ns, err := NewNatsSource(name, server.ClientURL(), "pages", "pages-queue", WithReadTimeout(100*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, ns.Start(context.Background()))
		sources = append(sources, ns)
	}
	defer func() {
		for _, ns := range sources {
			_ = ns.Close()
		}
	}()

	nc, err := natslib.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	for i := 0; i < 20; i++ {
		require.NoError(t, nc.Publish("pages", []byte(`{}`)))
	}
	require.NoError(t, nc.Flush())

	// every message is delivered to exactly one member of the queue group
	var read int
	deadline := time.Now().Add(5 * time.Second)
	for read < 20 && time.Now().Before(deadline) {
		for _, ns := range sources {
			msgs, err := ns.Read(context.Background(), 20)
			require.NoError(t, err)
			read += len(msgs)
		}
	}
	assert.Equal(t, 20, read)
}

func Test_Invalid(t *testing.T) {
	_, err := NewNatsSource("nats-in", "", "pages", "")
	assert.Error(t, err)
	_, err = NewNatsSource("nats-in", "nats://127.0.0.1:4222", "pages", "", WithBufferSize(0))
	assert.Error(t, err)

	ns, err := NewNatsSource("nats-in", "nats://127.0.0.1:4222", "pages", "")
	require.NoError(t, err)
	assert.Error(t, ns.IsHealthy(context.Background()))
	assert.NoError(t, ns.Close())
	assert.NoError(t, ns.Close())
}
