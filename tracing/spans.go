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
	"cmp"
	"context"
	"errors"
	"sync/atomic"
)

type SpanError struct {
	Message string
	Data    map[string]any
}

func (err SpanError) Error() string { return cmp.Or(err.Message, "span error") }

func (err SpanError) Export() map[string]any {
	return map[string]any{
		"message": err.Message,
		"data":    err.Data,
	}
}

type Span interface {
	// Run calls the given function between Start and Finish.
	Run(context.Context, func(context.Context, Span) error) error

	// Start the span. If markAsCurrent is true, the span becomes the
	// current span in the context scope.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish the span. If resetCurrent is true, the previous span is
	// restored as current.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	SpanID() string
	SpanData() SpanData
	ParentID() string
	SetError(err SpanError)
	Error() *SpanError
	StartedAt() string
	EndedAt() string
	Export() map[string]any
}

// NoOpSpan is a span that does nothing, used when tracing is disabled.
type NoOpSpan struct {
	spanData        SpanData
	prevContextSpan Span
	started         bool
}

func NewNoOpSpan(spanData SpanData) *NoOpSpan {
	return &NoOpSpan{spanData: spanData}
}

func (s *NoOpSpan) Run(ctx context.Context, fn func(context.Context, Span) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = s.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := s.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, s)
}

func (s *NoOpSpan) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		s.prevContextSpan = setCurrentSpan(ctx, s)
		s.started = true
	}
	return nil
}

func (s *NoOpSpan) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent && s.started {
		setCurrentSpan(ctx, s.prevContextSpan)
		s.started = false
	}
	return nil
}

func (s *NoOpSpan) TraceID() string        { return "no-op" }
func (s *NoOpSpan) SpanID() string         { return "no-op" }
func (s *NoOpSpan) SpanData() SpanData     { return s.spanData }
func (s *NoOpSpan) ParentID() string       { return "" }
func (s *NoOpSpan) SetError(SpanError)     {}
func (s *NoOpSpan) Error() *SpanError      { return nil }
func (s *NoOpSpan) StartedAt() string      { return "" }
func (s *NoOpSpan) EndedAt() string        { return "" }
func (s *NoOpSpan) Export() map[string]any { return nil }

// SpanImpl is a span recorded through a Processor.
type SpanImpl struct {
	traceID         string
	spanID          string
	parentID        string
	startedAt       string
	endedAt         string
	error           atomic.Pointer[SpanError]
	prevContextSpan Span
	processor       Processor
	spanData        SpanData
}

func NewSpanImpl(traceID, spanID, parentID string, processor Processor, spanData SpanData) *SpanImpl {
	if spanID == "" {
		spanID = GenSpanID()
	}
	return &SpanImpl{
		traceID:   traceID,
		spanID:    spanID,
		parentID:  parentID,
		processor: processor,
		spanData:  spanData,
	}
}

func (s *SpanImpl) Run(ctx context.Context, fn func(context.Context, Span) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = s.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := s.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, s)
}

func (s *SpanImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if s.startedAt != "" {
		Logger().Warn("Span already started")
		return nil
	}

	s.startedAt = TimeISO()
	if err := s.processor.OnSpanStart(ctx, s); err != nil {
		return err
	}
	if markAsCurrent {
		s.prevContextSpan = setCurrentSpan(ctx, s)
	}
	return nil
}

func (s *SpanImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if s.endedAt != "" {
		Logger().Warn("Span already finished")
		return nil
	}

	s.endedAt = TimeISO()
	if err := s.processor.OnSpanEnd(ctx, s); err != nil {
		return err
	}
	if resetCurrent {
		setCurrentSpan(ctx, s.prevContextSpan)
	}
	return nil
}

func (s *SpanImpl) TraceID() string      { return s.traceID }
func (s *SpanImpl) SpanID() string       { return s.spanID }
func (s *SpanImpl) SpanData() SpanData   { return s.spanData }
func (s *SpanImpl) ParentID() string     { return s.parentID }
func (s *SpanImpl) SetError(e SpanError) { s.error.Store(&e) }
func (s *SpanImpl) Error() *SpanError    { return s.error.Load() }
func (s *SpanImpl) StartedAt() string    { return s.startedAt }
func (s *SpanImpl) EndedAt() string      { return s.endedAt }

func (s *SpanImpl) Export() map[string]any {
	var spanError map[string]any
	if e := s.Error(); e != nil {
		spanError = e.Export()
	}
	var spanData map[string]any
	if s.spanData != nil {
		spanData = s.spanData.Export()
	}
	return map[string]any{
		"object":     "trace.span",
		"id":         s.spanID,
		"trace_id":   s.traceID,
		"parent_id":  s.parentID,
		"started_at": s.startedAt,
		"ended_at":   s.endedAt,
		"span_data":  spanData,
		"error":      spanError,
	}
}
