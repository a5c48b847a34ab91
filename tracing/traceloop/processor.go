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

// Package traceloop exports story pipeline traces to Traceloop.
package traceloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/nlpodyssey/storycrafter/tracing"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

// TracingProcessor implements tracing.Processor to send traces to Traceloop.
// Each trace becomes a workflow; each span becomes a task, and generation
// spans additionally log the prompt and completion.
type TracingProcessor struct {
	client *sdk.Traceloop

	mu        sync.Mutex
	workflows map[string]*sdk.Workflow
	tasks     map[string]*sdk.Task
	llmSpans  map[string]*sdk.LLMSpan
}

type ProcessorParams struct {
	// Traceloop API key. Required.
	APIKey string
	// Traceloop base URL. Defaults to api.traceloop.com.
	BaseURL string
}

// NewTracingProcessor creates a new Traceloop tracing processor.
func NewTracingProcessor(ctx context.Context, params ProcessorParams) (*TracingProcessor, error) {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "api.traceloop.com"
	}

	client, err := sdk.NewClient(ctx, sdk.Config{
		BaseURL: baseURL,
		APIKey:  params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Traceloop client: %w", err)
	}

	return &TracingProcessor{
		client:    client,
		workflows: make(map[string]*sdk.Workflow),
		tasks:     make(map[string]*sdk.Task),
		llmSpans:  make(map[string]*sdk.LLMSpan),
	}, nil
}

func (p *TracingProcessor) OnTraceStart(ctx context.Context, trace tracing.Trace) error {
	workflow := p.client.NewWorkflow(ctx, sdk.WorkflowAttributes{Name: trace.Name()})

	p.mu.Lock()
	p.workflows[trace.TraceID()] = workflow
	p.mu.Unlock()
	return nil
}

func (p *TracingProcessor) OnTraceEnd(_ context.Context, trace tracing.Trace) error {
	p.mu.Lock()
	workflow := p.workflows[trace.TraceID()]
	delete(p.workflows, trace.TraceID())
	p.mu.Unlock()

	if workflow != nil {
		workflow.End()
	}
	return nil
}

func (p *TracingProcessor) OnSpanStart(_ context.Context, span tracing.Span) error {
	p.mu.Lock()
	workflow := p.workflows[span.TraceID()]
	p.mu.Unlock()

	if workflow == nil {
		tracing.Logger().Warn("No workflow found for span, skipping", "span_id", span.SpanID())
		return nil
	}

	task := workflow.NewTask(taskName(span))

	p.mu.Lock()
	p.tasks[span.SpanID()] = task
	p.mu.Unlock()

	if data, ok := span.SpanData().(*tracing.GenerationSpanData); ok {
		llmSpan, err := task.LogPrompt(sdk.Prompt{
			Vendor: "openai",
			Mode:   "chat",
			Model:  data.Model,
			Messages: []sdk.Message{
				{Index: 0, Role: "user", Content: data.Input},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to log prompt: %w", err)
		}
		p.mu.Lock()
		p.llmSpans[span.SpanID()] = &llmSpan
		p.mu.Unlock()
	}
	return nil
}

func (p *TracingProcessor) OnSpanEnd(ctx context.Context, span tracing.Span) error {
	p.mu.Lock()
	task := p.tasks[span.SpanID()]
	llmSpan := p.llmSpans[span.SpanID()]
	delete(p.tasks, span.SpanID())
	delete(p.llmSpans, span.SpanID())
	p.mu.Unlock()

	if data, ok := span.SpanData().(*tracing.GenerationSpanData); ok && llmSpan != nil {
		llmSpan.LogCompletion(ctx, sdk.Completion{
			Model: data.Model,
			Messages: []sdk.Message{
				{Index: 0, Role: "assistant", Content: data.Output},
			},
		}, extractUsage(data))
	}

	if task != nil {
		task.End()
	}
	return nil
}

func (p *TracingProcessor) Shutdown(ctx context.Context) error {
	if p.client != nil {
		p.client.Shutdown(ctx)
	}
	return nil
}

func (p *TracingProcessor) ForceFlush(context.Context) error {
	// The Traceloop SDK handles flushing internally.
	return nil
}

func taskName(span tracing.Span) string {
	switch data := span.SpanData().(type) {
	case *tracing.StageSpanData:
		return fmt.Sprintf("stage_%s", data.Name)
	case *tracing.GenerationSpanData:
		if data.Model != "" {
			return fmt.Sprintf("llm_%s", data.Model)
		}
		return "llm_generation"
	case *tracing.CustomSpanData:
		return data.Name
	default:
		return span.SpanData().Type()
	}
}

func extractUsage(data *tracing.GenerationSpanData) sdk.Usage {
	var usage sdk.Usage
	if v, ok := data.Usage["prompt_tokens"].(int); ok {
		usage.PromptTokens = v
	}
	if v, ok := data.Usage["completion_tokens"].(int); ok {
		usage.CompletionTokens = v
	}
	if v, ok := data.Usage["total_tokens"].(int); ok {
		usage.TotalTokens = v
	}
	return usage
}
