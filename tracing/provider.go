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
	"os"
	"sync"
	"sync/atomic"
)

// multiProcessor forwards every event to a set of processors.
type multiProcessor struct {
	mu         sync.RWMutex
	processors []Processor
}

func (m *multiProcessor) addProcessor(p Processor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processors = append(m.processors, p)
}

func (m *multiProcessor) setProcessors(ps []Processor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processors = ps
}

func (m *multiProcessor) snapshot() []Processor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps := make([]Processor, len(m.processors))
	copy(ps, m.processors)
	return ps
}

func (m *multiProcessor) OnTraceStart(ctx context.Context, t Trace) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.OnTraceStart(ctx, t))
	}
	return errors.Join(errs...)
}

func (m *multiProcessor) OnTraceEnd(ctx context.Context, t Trace) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.OnTraceEnd(ctx, t))
	}
	return errors.Join(errs...)
}

func (m *multiProcessor) OnSpanStart(ctx context.Context, s Span) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.OnSpanStart(ctx, s))
	}
	return errors.Join(errs...)
}

func (m *multiProcessor) OnSpanEnd(ctx context.Context, s Span) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.OnSpanEnd(ctx, s))
	}
	return errors.Join(errs...)
}

func (m *multiProcessor) Shutdown(ctx context.Context) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (m *multiProcessor) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, p := range m.snapshot() {
		errs = append(errs, p.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// TraceProvider creates traces and spans and routes them to processors.
type TraceProvider struct {
	processor *multiProcessor
	disabled  atomic.Bool
}

func NewTraceProvider() *TraceProvider {
	p := &TraceProvider{processor: &multiProcessor{}}
	p.disabled.Store(os.Getenv("STORYCRAFTER_TRACING_DISABLED") == "1")
	return p
}

var globalProvider atomic.Pointer[TraceProvider]

func init() {
	globalProvider.Store(NewTraceProvider())
}

// GetTraceProvider returns the global trace provider.
func GetTraceProvider() *TraceProvider {
	return globalProvider.Load()
}

// AddTraceProcessor adds a processor to the global provider.
func AddTraceProcessor(p Processor) {
	GetTraceProvider().processor.addProcessor(p)
}

// SetTraceProcessors replaces the processors of the global provider.
func SetTraceProcessors(ps []Processor) {
	GetTraceProvider().processor.setProcessors(ps)
}

// SetTracingDisabled enables or disables tracing globally.
func SetTracingDisabled(disabled bool) {
	GetTraceProvider().disabled.Store(disabled)
}

// Shutdown shuts down all registered processors.
func Shutdown(ctx context.Context) error {
	return GetTraceProvider().processor.Shutdown(ctx)
}

// ForceFlush flushes all registered processors.
func ForceFlush(ctx context.Context) error {
	return GetTraceProvider().processor.ForceFlush(ctx)
}

// CreateTrace creates a new trace, or a NoOpTrace when tracing is disabled.
func (p *TraceProvider) CreateTrace(name, traceID, groupID string, metadata map[string]any, disabled bool) Trace {
	if disabled || p.disabled.Load() {
		return NewNoOpTrace()
	}
	return NewTraceImpl(name, traceID, groupID, metadata, p.processor)
}

// CreateSpan creates a new span under the current trace. When there is no
// current trace, or tracing is disabled, a NoOpSpan is returned.
func (p *TraceProvider) CreateSpan(ctx context.Context, spanData SpanData, spanID string, disabled bool) Span {
	if disabled || p.disabled.Load() {
		return NewNoOpSpan(spanData)
	}

	currentTrace := GetCurrentTrace(ctx)
	if currentTrace == nil {
		Logger().Error("No active trace. Make sure to start a trace first.")
		return NewNoOpSpan(spanData)
	}
	if _, isNoOp := currentTrace.(*NoOpTrace); isNoOp {
		return NewNoOpSpan(spanData)
	}

	parentID := ""
	if parentSpan := GetCurrentSpan(ctx); parentSpan != nil {
		if _, isNoOp := parentSpan.(*NoOpSpan); !isNoOp {
			parentID = parentSpan.SpanID()
		}
	}

	return NewSpanImpl(currentTrace.TraceID(), spanID, parentID, p.processor, spanData)
}
