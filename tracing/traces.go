// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"
	"errors"
)

// Trace is the root of a recorded workflow run. All spans created while a
// trace is current belong to it.
type Trace interface {
	// Run calls the given function between Start and Finish.
	Run(context.Context, func(context.Context, Trace) error) error

	// Start the trace. If markAsCurrent is true, the trace becomes the
	// current trace in the context scope.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish the trace. If resetCurrent is true, the previous trace is
	// restored as current.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	Name() string
	Export() map[string]any
}

// NoOpTrace is a trace that does nothing, used when tracing is disabled.
type NoOpTrace struct {
	prevContextTrace Trace
	started          bool
}

func NewNoOpTrace() *NoOpTrace { return &NoOpTrace{} }

func (t *NoOpTrace) Run(ctx context.Context, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = t.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := t.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, t)
}

func (t *NoOpTrace) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		t.prevContextTrace = setCurrentTrace(ctx, t)
		t.started = true
	}
	return nil
}

func (t *NoOpTrace) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent && t.started {
		setCurrentTrace(ctx, t.prevContextTrace)
		t.started = false
	}
	return nil
}

func (t *NoOpTrace) TraceID() string        { return "no-op" }
func (t *NoOpTrace) Name() string           { return "no-op" }
func (t *NoOpTrace) Export() map[string]any { return nil }

// TraceImpl is a trace recorded through a Processor.
type TraceImpl struct {
	traceID          string
	name             string
	groupID          string
	metadata         map[string]any
	processor        Processor
	prevContextTrace Trace
	started          bool
	finished         bool
}

func NewTraceImpl(name, traceID, groupID string, metadata map[string]any, processor Processor) *TraceImpl {
	if traceID == "" {
		traceID = GenTraceID()
	}
	return &TraceImpl{
		traceID:   traceID,
		name:      name,
		groupID:   groupID,
		metadata:  metadata,
		processor: processor,
	}
}

func (t *TraceImpl) Run(ctx context.Context, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = t.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := t.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, t)
}

func (t *TraceImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if t.started {
		Logger().Warn("Trace already started")
		return nil
	}
	t.started = true

	if err := t.processor.OnTraceStart(ctx, t); err != nil {
		return err
	}
	if markAsCurrent {
		t.prevContextTrace = setCurrentTrace(ctx, t)
	}
	return nil
}

func (t *TraceImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if t.finished {
		Logger().Warn("Trace already finished")
		return nil
	}
	t.finished = true

	if err := t.processor.OnTraceEnd(ctx, t); err != nil {
		return err
	}
	if resetCurrent {
		setCurrentTrace(ctx, t.prevContextTrace)
	}
	return nil
}

func (t *TraceImpl) TraceID() string { return t.traceID }
func (t *TraceImpl) Name() string    { return t.name }

func (t *TraceImpl) Export() map[string]any {
	return map[string]any{
		"object":        "trace",
		"id":            t.traceID,
		"workflow_name": t.name,
		"group_id":      t.groupID,
		"metadata":      t.metadata,
	}
}
