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

// Package redis wraps the go-redis client used to persist window counts.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient datatype to hold redis client attributes.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedisClient returns a new Redis Client.
func NewRedisClient(options *redis.UniversalOptions) *RedisClient {
	client := new(RedisClient)
	client.Client = redis.NewUniversalClient(options)
	return client
}

// HashCount is a single counter stored as a field of a hash.
type HashCount struct {
	Key   string
	Field string
	Count int64
}

// SetHashCounts writes all the counts in one pipeline. A positive ttl is (re)applied to every touched hash.
// The returned errors have the same length and order as counts.
func (cl *RedisClient) SetHashCounts(ctx context.Context, counts []HashCount, ttl time.Duration) []error {
	errs := make([]error, len(counts))
	if len(counts) == 0 {
		return errs
	}
	pipe := cl.Client.Pipeline()
	setCmds := make([]*redis.IntCmd, len(counts))
	expireCmds := make([]*redis.BoolCmd, len(counts))
	for i, c := range counts {
		setCmds[i] = pipe.HSet(ctx, c.Key, c.Field, c.Count)
		if ttl > 0 {
			expireCmds[i] = pipe.Expire(ctx, c.Key, ttl)
		}
	}
	// the per command errors are checked below, Exec only returns the first of them
	_, _ = pipe.Exec(ctx)
	for i := range counts {
		if err := setCmds[i].Err(); err != nil {
			errs[i] = err
			continue
		}
		if expireCmds[i] != nil {
			errs[i] = expireCmds[i].Err()
		}
	}
	return errs
}

// IsHealthy pings the server.
func (cl *RedisClient) IsHealthy(ctx context.Context) error {
	return cl.Client.Ping(ctx).Err()
}

func (cl *RedisClient) Close() error {
	return cl.Client.Close()
}
