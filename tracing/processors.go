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
	"log/slog"
)

// LoggingProcessor writes traces and spans to the tracing logger at debug
// level. It is useful during development and as a fallback when no
// exporter is configured.
type LoggingProcessor struct{}

func (LoggingProcessor) OnTraceStart(_ context.Context, t Trace) error {
	Logger().Debug("trace started", slog.String("trace_id", t.TraceID()), slog.String("workflow", t.Name()))
	return nil
}

func (LoggingProcessor) OnTraceEnd(_ context.Context, t Trace) error {
	Logger().Debug("trace finished", slog.String("trace_id", t.TraceID()))
	return nil
}

func (LoggingProcessor) OnSpanStart(_ context.Context, s Span) error {
	Logger().Debug("span started",
		slog.String("trace_id", s.TraceID()),
		slog.String("span_id", s.SpanID()),
		slog.String("type", s.SpanData().Type()),
	)
	return nil
}

func (LoggingProcessor) OnSpanEnd(_ context.Context, s Span) error {
	attrs := []any{
		slog.String("trace_id", s.TraceID()),
		slog.String("span_id", s.SpanID()),
		slog.String("type", s.SpanData().Type()),
	}
	if e := s.Error(); e != nil {
		attrs = append(attrs, slog.String("error", e.Message))
	}
	Logger().Debug("span finished", attrs...)
	return nil
}

func (LoggingProcessor) Shutdown(context.Context) error   { return nil }
func (LoggingProcessor) ForceFlush(context.Context) error { return nil }
