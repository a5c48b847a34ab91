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

import "context"

type TraceParams struct {
	// The name of the logical workflow, e.g. "story_generation".
	WorkflowName string

	// The ID of the trace. Optional. If not provided, we will generate one.
	TraceID string

	// Optional grouping identifier to link multiple traces from the same
	// conversation, e.g. a session ID.
	GroupID string

	// Optional dictionary of additional metadata to attach to the trace.
	Metadata map[string]any

	// If true, a Trace is returned but nothing is recorded.
	Disabled bool
}

// NewTrace creates a new trace.
//
// The trace is not started automatically; either use RunTrace, Trace.Run,
// or call Trace.Start and Trace.Finish manually.
func NewTrace(ctx context.Context, params TraceParams) Trace {
	if GetCurrentTrace(ctx) != nil {
		Logger().Warn("Trace already exists. Creating a new trace, but this is probably a mistake.")
	}
	return GetTraceProvider().CreateTrace(
		params.WorkflowName,
		params.TraceID,
		params.GroupID,
		params.Metadata,
		params.Disabled,
	)
}

// RunTrace runs fn inside a new trace.
func RunTrace(ctx context.Context, params TraceParams, fn func(context.Context, Trace) error) error {
	return NewTrace(ctx, params).Run(ctx, fn)
}

type GenerationSpanParams struct {
	// The model used for the generation.
	Model string
	// The prompt sent to the model.
	Input string
	// The ID of the span. Optional. If not provided, we will generate one.
	SpanID string
	// If true, a Span is returned but nothing is recorded.
	Disabled bool
}

// NewGenerationSpan creates a new generation span.
//
// The span is not started automatically; either use GenerationSpan,
// Span.Run, or call Span.Start and Span.Finish manually.
func NewGenerationSpan(ctx context.Context, params GenerationSpanParams) Span {
	spanData := &GenerationSpanData{
		Model: params.Model,
		Input: params.Input,
	}
	return GetTraceProvider().CreateSpan(ctx, spanData, params.SpanID, params.Disabled)
}

// GenerationSpan runs fn inside a new generation span.
func GenerationSpan(ctx context.Context, params GenerationSpanParams, fn func(context.Context, Span) error) error {
	return NewGenerationSpan(ctx, params).Run(ctx, fn)
}

type StageSpanParams struct {
	// The name of the pipeline stage.
	Name string
	// The pipeline mode, e.g. "create", "edit" or "question".
	Mode string
	// The ID of the span. Optional. If not provided, we will generate one.
	SpanID string
	// If true, a Span is returned but nothing is recorded.
	Disabled bool
}

// NewStageSpan creates a new pipeline stage span.
func NewStageSpan(ctx context.Context, params StageSpanParams) Span {
	spanData := &StageSpanData{
		Name: params.Name,
		Mode: params.Mode,
	}
	return GetTraceProvider().CreateSpan(ctx, spanData, params.SpanID, params.Disabled)
}

// StageSpan runs fn inside a new stage span.
func StageSpan(ctx context.Context, params StageSpanParams, fn func(context.Context, Span) error) error {
	return NewStageSpan(ctx, params).Run(ctx, fn)
}

type CustomSpanParams struct {
	// The name of the custom span.
	Name string
	// Arbitrary data to attach to the span.
	Data map[string]any
	// The ID of the span. Optional. If not provided, we will generate one.
	SpanID string
	// If true, a Span is returned but nothing is recorded.
	Disabled bool
}

// NewCustomSpan creates a new custom span.
func NewCustomSpan(ctx context.Context, params CustomSpanParams) Span {
	spanData := &CustomSpanData{
		Name: params.Name,
		Data: params.Data,
	}
	return GetTraceProvider().CreateSpan(ctx, spanData, params.SpanID, params.Disabled)
}

// CustomSpan runs fn inside a new custom span.
func CustomSpan(ctx context.Context, params CustomSpanParams, fn func(context.Context, Span) error) error {
	return NewCustomSpan(ctx, params).Run(ctx, fn)
}
