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

package sources

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/numaproj/pagecount/pkg/config"
	"github.com/numaproj/pagecount/pkg/shared/logging"
	"github.com/numaproj/pagecount/pkg/sources/generator"
	"github.com/numaproj/pagecount/pkg/sources/kafka"
	"github.com/numaproj/pagecount/pkg/sources/nats"
)

// NewSourcer builds the configured source. The source is not started.
func NewSourcer(ctx context.Context, cfg *config.Config) (Sourcer, error) {
	log := logging.FromContext(ctx)
	src := cfg.Source
	switch src.Type {
	case config.SourceTypeGenerator:
		seed := src.Generator.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return generator.NewMemGen(src.Type,
			generator.WithRPU(int(src.Generator.RPU)),
			generator.WithTimeunit(src.Generator.Duration),
			generator.WithRandSource(rand.NewSource(seed)),
			generator.WithBufferSize(cfg.InputBufferSize),
			generator.WithPipelineName(cfg.PipelineName),
			generator.WithLogger(log))
	case config.SourceTypeKafka:
		opts := []kafka.Option{
			kafka.WithLogger(log),
			kafka.WithGroupName(src.Kafka.GroupName),
			kafka.WithBufferSize(cfg.InputBufferSize),
			kafka.WithPipelineName(cfg.PipelineName),
		}
		if src.Kafka.Config != "" {
			opts = append(opts, kafka.WithSaramaConfig(src.Kafka.Config))
		}
		return kafka.NewKafkaSource(src.Type, src.Kafka.Brokers, src.Kafka.Topic, opts...)
	case config.SourceTypeNats:
		opts := []nats.Option{
			nats.WithLogger(log),
			nats.WithBufferSize(cfg.InputBufferSize),
			nats.WithPipelineName(cfg.PipelineName),
		}
		switch {
		case src.Nats.User != "" && src.Nats.Password != "":
			opts = append(opts, nats.WithBasicAuth(src.Nats.User, src.Nats.Password))
		case src.Nats.Token != "":
			opts = append(opts, nats.WithToken(src.Nats.Token))
		}
		return nats.NewNatsSource(src.Type, src.Nats.URL, src.Nats.Subject, src.Nats.Queue, opts...)
	}
	return nil, fmt.Errorf("invalid source type %q", src.Type)
}
