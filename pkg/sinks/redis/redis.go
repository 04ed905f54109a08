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

// Package redis implements a sink storing window counts in redis. Every group key gets a hash named
// "<prefix>:<key>" whose fields are "<windowStartMs>-<windowEndMs>" and values the counts.
package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	redisclient "github.com/numaproj/pagecount/pkg/shared/clients/redis"
	"github.com/numaproj/pagecount/pkg/shared/logging"
)

// RedisSink is a sink to publish to redis.
type RedisSink struct {
	name         string
	pipelineName string
	prefix       string
	ttl          time.Duration
	client       *redisclient.RedisClient
	logger       *zap.SugaredLogger
}

type Option func(sink *RedisSink) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(rs *RedisSink) error {
		rs.logger = log
		return nil
	}
}

func WithPipelineName(name string) Option {
	return func(rs *RedisSink) error {
		rs.pipelineName = name
		return nil
	}
}

// WithPrefix sets the prefix of the hash keys
func WithPrefix(prefix string) Option {
	return func(rs *RedisSink) error {
		rs.prefix = prefix
		return nil
	}
}

// WithTTL sets the expiry of the hashes, refreshed on every write
func WithTTL(ttl time.Duration) Option {
	return func(rs *RedisSink) error {
		if ttl < 0 {
			return fmt.Errorf("redis sink ttl must not be negative, got %s", ttl)
		}
		rs.ttl = ttl
		return nil
	}
}

// NewRedisSink returns RedisSink type.
func NewRedisSink(name string, client *redisclient.RedisClient, opts ...Option) (*RedisSink, error) {
	rs := &RedisSink{
		name:         name,
		pipelineName: "default",
		prefix:       "pagecount",
		client:       client,
	}
	for _, o := range opts {
		if err := o(rs); err != nil {
			return nil, err
		}
	}
	if rs.logger == nil {
		rs.logger = logging.NewLogger()
	}
	rs.logger = rs.logger.With("sinkType", "redis")
	return rs, nil
}

// GetName returns the name.
func (rs *RedisSink) GetName() string {
	return rs.name
}

// HashKey returns the hash holding the counts of a group key.
func (rs *RedisSink) HashKey(groupKey string) string {
	return rs.prefix + ":" + groupKey
}

// WindowField returns the hash field of a window.
func WindowField(r emitter.Result) string {
	return fmt.Sprintf("%d-%d", r.WindowStart.UnixMilli(), r.WindowEnd.UnixMilli())
}

// Write writes the counts to redis in a single pipeline.
func (rs *RedisSink) Write(ctx context.Context, results []emitter.Result) []error {
	counts := make([]redisclient.HashCount, len(results))
	for i, r := range results {
		counts[i] = redisclient.HashCount{Key: rs.HashKey(r.GroupKey), Field: WindowField(r), Count: r.Count}
	}
	errs := rs.client.SetHashCounts(ctx, counts, rs.ttl)
	labels := map[string]string{metrics.LabelComponentName: rs.name, metrics.LabelPipeline: rs.pipelineName}
	for i, err := range errs {
		if err != nil {
			redisSinkWriteErrors.With(labels).Inc()
			rs.logger.Errorw("Failed to write result", zap.Stringer("result", results[i]), zap.Error(err))
			continue
		}
		redisSinkWriteCount.With(labels).Inc()
	}
	return errs
}

// IsHealthy pings redis.
func (rs *RedisSink) IsHealthy(ctx context.Context) error {
	return rs.client.IsHealthy(ctx)
}

func (rs *RedisSink) Close() error {
	return rs.client.Close()
}
