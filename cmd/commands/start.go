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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/numaproj/pagecount"
	"github.com/numaproj/pagecount/pkg/config"
	"github.com/numaproj/pagecount/pkg/forward"
	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce"
	"github.com/numaproj/pagecount/pkg/reduce/applier"
	"github.com/numaproj/pagecount/pkg/shared/logging"
	"github.com/numaproj/pagecount/pkg/sinks"
	"github.com/numaproj/pagecount/pkg/sources"
	"github.com/numaproj/pagecount/pkg/window"
)

func NewStartCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:   "start",
		Short: "Start counting page events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log := logging.NewLogger().Named("start").With("pipeline", cfg.PipelineName)
			log.Infow("Starting pagecount", "version", pagecount.GetVersion())
			ctx := logging.WithLogger(signals.SetupSignalHandler(), log)
			return run(ctx, cfg)
		},
	}
	command.Flags().StringVar(&configFile, "config", "", "path of the YAML configuration file, defaults and PAGECOUNT_ environment variables apply when empty")
	return command
}

// run wires the source, the engine and the sink together and forwards until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.FromContext(ctx)
	v := pagecount.GetVersion()
	metrics.BuildInfo.WithLabelValues(v.Version, v.Platform).Set(1)

	engine, err := newEngine(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create engine, %w", err)
	}
	sink, err := sinks.NewSinker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create sink, %w", err)
	}
	source, err := sources.NewSourcer(ctx, cfg)
	if err != nil {
		closeAll(log, sink)
		return fmt.Errorf("failed to create source, %w", err)
	}
	return serve(ctx, cfg, engine, source, sink)
}

// serve owns the source and the sink, they are closed on every path.
func serve(ctx context.Context, cfg *config.Config, engine forward.Processor, source sources.Sourcer, sink sinks.Sinker) error {
	log := logging.FromContext(ctx)
	if err := source.Start(ctx); err != nil {
		closeAll(log, source, sink)
		return fmt.Errorf("failed to start source, %w", err)
	}

	var checkers []metrics.HealthChecker
	for _, c := range []interface{}{source, sink} {
		if hc, ok := c.(metrics.HealthChecker); ok {
			checkers = append(checkers, hc)
		}
	}
	shutdown, err := metrics.NewMetricsServer(
		metrics.WithPort(cfg.Metrics.Port),
		metrics.WithPprof(cfg.Metrics.Pprof),
		metrics.WithHealthCheckers(ctx, 5*time.Second, checkers...),
	).Start(ctx)
	if err != nil {
		closeAll(log, source, sink)
		return fmt.Errorf("failed to start metrics server, %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	df, err := forward.NewDataForward(source, engine, sink,
		forward.WithReadBatchSize(cfg.ReadBatchSize),
		forward.WithInputBufferSize(cfg.InputBufferSize),
		forward.WithOutputBufferSize(cfg.OutputBufferSize),
		forward.WithPipelineName(cfg.PipelineName),
		forward.WithLogger(log))
	if err != nil {
		closeAll(log, source, sink)
		return err
	}
	err = df.Run(ctx)
	log.Infow("Exited...", zap.Any("stats", df.Stats()))
	return err
}

func closeAll(log *zap.SugaredLogger, closers ...io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Errorw("Failed to close", zap.Error(err))
		}
	}
}

func newEngine(cfg *config.Config, log *zap.SugaredLogger) (*reduce.Engine, error) {
	opts := []reduce.Option{
		reduce.WithWindowOptions(window.WithWindowDuration(cfg.WindowSize), window.WithGrace(cfg.Grace)),
		reduce.WithAllowedLateness(cfg.AllowedLateness),
		reduce.WithDurationThreshold(cfg.DurationThreshold),
		reduce.WithMaxEntries(cfg.MaxEntries),
		reduce.WithPipelineName(cfg.PipelineName),
		reduce.WithLogger(log),
	}
	if cfg.FilterExpression != "" {
		ef, err := applier.NewExpressionFilter(cfg.FilterExpression, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reduce.WithFilter(applier.All(applier.DurationFilter{Threshold: cfg.DurationThreshold}, ef)))
	}
	return reduce.NewEngine(opts...)
}
