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

package sinks

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/numaproj/pagecount/pkg/config"
	"github.com/numaproj/pagecount/pkg/shared/clients/redis"
	"github.com/numaproj/pagecount/pkg/shared/logging"
	"github.com/numaproj/pagecount/pkg/sinks/blackhole"
	"github.com/numaproj/pagecount/pkg/sinks/kafka"
	"github.com/numaproj/pagecount/pkg/sinks/logger"
	redissink "github.com/numaproj/pagecount/pkg/sinks/redis"
)

// NewSinker builds the configured sink.
func NewSinker(ctx context.Context, cfg *config.Config) (Sinker, error) {
	log := logging.FromContext(ctx)
	sink := cfg.Sink
	switch sink.Type {
	case config.SinkTypeLog:
		return logger.NewToLog(sink.Type, logger.WithLogger(log), logger.WithPipelineName(cfg.PipelineName))
	case config.SinkTypeBlackhole:
		return blackhole.NewBlackhole(sink.Type, cfg.PipelineName), nil
	case config.SinkTypeKafka:
		return kafka.NewToKafka(sink.Type, sink.Kafka.Brokers, sink.Kafka.Topic,
			kafka.WithLogger(log),
			kafka.WithPipelineName(cfg.PipelineName),
			kafka.WithSaramaConfig(sink.Kafka.Config))
	case config.SinkTypeRedis:
		client := redis.NewRedisClient(&goredis.UniversalOptions{
			Addrs:    sink.Redis.Addrs,
			Username: sink.Redis.Username,
			Password: sink.Redis.Password,
		})
		return redissink.NewRedisSink(sink.Type, client,
			redissink.WithLogger(log),
			redissink.WithPipelineName(cfg.PipelineName),
			redissink.WithPrefix(sink.Redis.Prefix),
			redissink.WithTTL(sink.Redis.TTL))
	}
	return nil, fmt.Errorf("invalid sink type %q", sink.Type)
}
