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

// Package config loads the pagecount configuration from a YAML file and PAGECOUNT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	// EnvPrefix is the prefix of the environment variables overriding the configuration,
	// e.g. PAGECOUNT_WINDOWSIZE or PAGECOUNT_SINK_TYPE.
	EnvPrefix = "PAGECOUNT"

	SourceTypeGenerator = "generator"
	SourceTypeKafka     = "kafka"
	SourceTypeNats      = "nats"

	SinkTypeLog       = "log"
	SinkTypeKafka     = "kafka"
	SinkTypeRedis     = "redis"
	SinkTypeBlackhole = "blackhole"
)

type Config struct {
	PipelineName string `mapstructure:"pipelineName"`
	// WindowSize is the length of the fixed windows
	WindowSize time.Duration `mapstructure:"windowSize"`
	// Grace is how long a window stays open after its end
	Grace time.Duration `mapstructure:"grace"`
	// AllowedLateness is how far the watermark trails the latest event time
	AllowedLateness time.Duration `mapstructure:"allowedLateness"`
	// DurationThreshold is the minimum page duration (exclusive) of a counted event
	DurationThreshold int64 `mapstructure:"durationThreshold"`
	// MaxEntries bounds the number of open (key, window) entries, 0 means unbounded
	MaxEntries int `mapstructure:"maxEntries"`
	// FilterExpression is an optional boolean expression evaluated on top of the duration filter
	FilterExpression string  `mapstructure:"filterExpression"`
	ReadBatchSize    int64   `mapstructure:"readBatchSize"`
	InputBufferSize  int     `mapstructure:"inputBufferSize"`
	OutputBufferSize int     `mapstructure:"outputBufferSize"`
	Source           Source  `mapstructure:"source"`
	Sink             Sink    `mapstructure:"sink"`
	Metrics          Metrics `mapstructure:"metrics"`
}

type Source struct {
	Type      string          `mapstructure:"type"`
	Generator GeneratorSource `mapstructure:"generator"`
	Kafka     KafkaSource     `mapstructure:"kafka"`
	Nats      NatsSource      `mapstructure:"nats"`
}

type GeneratorSource struct {
	// RPU is the number of events generated per time unit
	RPU      int64         `mapstructure:"rpu"`
	Duration time.Duration `mapstructure:"duration"`
	// Seed makes the generated events reproducible when not zero
	Seed int64 `mapstructure:"seed"`
}

type KafkaSource struct {
	Brokers   []string `mapstructure:"brokers"`
	Topic     string   `mapstructure:"topic"`
	GroupName string   `mapstructure:"groupName"`
	// Config is a sarama config in YAML
	Config string `mapstructure:"config"`
}

type NatsSource struct {
	URL      string `mapstructure:"url"`
	Subject  string `mapstructure:"subject"`
	Queue    string `mapstructure:"queue"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

type Sink struct {
	Type  string    `mapstructure:"type"`
	Kafka KafkaSink `mapstructure:"kafka"`
	Redis RedisSink `mapstructure:"redis"`
}

type KafkaSink struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Config  string   `mapstructure:"config"`
}

type RedisSink struct {
	Addrs    []string `mapstructure:"addrs"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	// Prefix of the hash keys, one hash per group key
	Prefix string `mapstructure:"prefix"`
	// TTL of the hashes, 0 keeps them forever
	TTL time.Duration `mapstructure:"ttl"`
}

type Metrics struct {
	Port  int  `mapstructure:"port"`
	Pprof bool `mapstructure:"pprof"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipelineName", "default")
	v.SetDefault("windowSize", 5*time.Second)
	v.SetDefault("grace", time.Duration(0))
	v.SetDefault("allowedLateness", time.Duration(0))
	v.SetDefault("durationThreshold", 100)
	v.SetDefault("maxEntries", 0)
	v.SetDefault("filterExpression", "")
	v.SetDefault("readBatchSize", 100)
	v.SetDefault("inputBufferSize", 500)
	v.SetDefault("outputBufferSize", 500)

	v.SetDefault("source.type", SourceTypeGenerator)
	v.SetDefault("source.generator.rpu", 5)
	v.SetDefault("source.generator.duration", time.Second)
	v.SetDefault("source.generator.seed", 0)
	v.SetDefault("source.kafka.brokers", []string{})
	v.SetDefault("source.kafka.topic", "")
	v.SetDefault("source.kafka.groupName", "pagecount")
	v.SetDefault("source.kafka.config", "")
	v.SetDefault("source.nats.url", "")
	v.SetDefault("source.nats.subject", "")
	v.SetDefault("source.nats.queue", "pagecount")
	v.SetDefault("source.nats.user", "")
	v.SetDefault("source.nats.password", "")
	v.SetDefault("source.nats.token", "")

	v.SetDefault("sink.type", SinkTypeLog)
	v.SetDefault("sink.kafka.brokers", []string{})
	v.SetDefault("sink.kafka.topic", "")
	v.SetDefault("sink.kafka.config", "")
	v.SetDefault("sink.redis.addrs", []string{})
	v.SetDefault("sink.redis.username", "")
	v.SetDefault("sink.redis.password", "")
	v.SetDefault("sink.redis.prefix", "pagecount")
	v.SetDefault("sink.redis.ttl", time.Duration(0))

	v.SetDefault("metrics.port", 2469)
	v.SetDefault("metrics.pprof", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Default returns the configuration with every default applied, overridden by the environment.
func Default() (*Config, error) {
	return unmarshal(newViper())
}

// Load reads the YAML file at path, an empty path loads the defaults only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q, %w", path, err)
		}
	}
	return unmarshal(v)
}

// FromYAMLString parses the configuration from a YAML string.
func FromYAMLString(yamlConfig string) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(strings.NewReader(yamlConfig)); err != nil {
		return nil, fmt.Errorf("failed to parse config, %w", err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate returns all the problems of the configuration at once.
func (c *Config) Validate() error {
	var err error
	if c.WindowSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("windowSize must be positive, got %s", c.WindowSize))
	}
	if c.Grace < 0 {
		err = multierr.Append(err, fmt.Errorf("grace must not be negative, got %s", c.Grace))
	}
	if c.AllowedLateness < 0 {
		err = multierr.Append(err, fmt.Errorf("allowedLateness must not be negative, got %s", c.AllowedLateness))
	}
	if c.MaxEntries < 0 {
		err = multierr.Append(err, fmt.Errorf("maxEntries must not be negative, got %d", c.MaxEntries))
	}
	if c.ReadBatchSize < 1 {
		err = multierr.Append(err, fmt.Errorf("readBatchSize must be positive, got %d", c.ReadBatchSize))
	}
	if c.InputBufferSize < 1 || c.OutputBufferSize < 1 {
		err = multierr.Append(err, errors.New("inputBufferSize and outputBufferSize must be positive"))
	}
	err = multierr.Append(err, c.Source.validate())
	err = multierr.Append(err, c.Sink.validate())
	return err
}

func (s Source) validate() error {
	switch s.Type {
	case SourceTypeGenerator:
		if s.Generator.RPU < 1 || s.Generator.Duration <= 0 {
			return errors.New("generator source requires a positive rpu and duration")
		}
	case SourceTypeKafka:
		if len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "" {
			return errors.New("kafka source requires brokers and a topic")
		}
	case SourceTypeNats:
		if s.Nats.URL == "" || s.Nats.Subject == "" {
			return errors.New("nats source requires a url and a subject")
		}
	default:
		return fmt.Errorf("unrecognized source type %q", s.Type)
	}
	return nil
}

func (s Sink) validate() error {
	switch s.Type {
	case SinkTypeLog, SinkTypeBlackhole:
	case SinkTypeKafka:
		if len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "" {
			return errors.New("kafka sink requires brokers and a topic")
		}
	case SinkTypeRedis:
		if len(s.Redis.Addrs) == 0 {
			return errors.New("redis sink requires at least one address")
		}
		if s.Redis.TTL < 0 {
			return fmt.Errorf("redis sink ttl must not be negative, got %s", s.Redis.TTL)
		}
	default:
		return fmt.Errorf("unrecognized sink type %q", s.Type)
	}
	return nil
}
