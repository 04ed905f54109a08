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

// Package logger implements a sink printing every window result.
package logger

import (
	"context"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/numaproj/pagecount/pkg/metrics"
	"github.com/numaproj/pagecount/pkg/reduce/emitter"
	"github.com/numaproj/pagecount/pkg/shared/logging"
)

// ToLog prints the output to a log sinks.
type ToLog struct {
	name         string
	pipelineName string
	out          *log.Logger
	logger       *zap.SugaredLogger
}

type Option func(*ToLog) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToLog) error {
		t.logger = log
		return nil
	}
}

// WithWriter sets where the results are printed, stdout by default.
func WithWriter(w io.Writer) Option {
	return func(t *ToLog) error {
		t.out = log.New(w, "", log.LstdFlags)
		return nil
	}
}

func WithPipelineName(name string) Option {
	return func(t *ToLog) error {
		t.pipelineName = name
		return nil
	}
}

// NewToLog returns ToLog type.
func NewToLog(name string, opts ...Option) (*ToLog, error) {
	toLog := &ToLog{
		name:         name,
		pipelineName: "default",
	}
	for _, o := range opts {
		if err := o(toLog); err != nil {
			return nil, err
		}
	}
	if toLog.logger == nil {
		toLog.logger = logging.NewLogger()
	}
	if toLog.out == nil {
		toLog.out = log.New(os.Stdout, "", log.LstdFlags)
	}
	return toLog, nil
}

// GetName returns the name.
func (t *ToLog) GetName() string {
	return t.name
}

// Write writes to the log.
func (t *ToLog) Write(_ context.Context, results []emitter.Result) []error {
	prefix := "(" + t.GetName() + ")"
	for _, r := range results {
		logSinkWriteCount.With(map[string]string{metrics.LabelComponentName: t.name, metrics.LabelPipeline: t.pipelineName}).Inc()
		t.out.Println(prefix, " Key - ", r.GroupKey, " Window - ", "["+r.WindowStart.UTC().Format("15:04:05.000")+", "+r.WindowEnd.UTC().Format("15:04:05.000")+")", " Count - ", r.Count)
	}
	return make([]error, len(results))
}

func (t *ToLog) Close() error {
	t.logger.Debug("log sink closed")
	return nil
}
