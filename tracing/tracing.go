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

// Package tracing records story pipeline runs as traces made of spans,
// and forwards them to registered processors.
package tracing

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var tracingLogger atomic.Pointer[slog.Logger]

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	SetLogger(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// Logger is the logger used by the tracing package.
func Logger() *slog.Logger {
	return tracingLogger.Load()
}

// SetLogger sets the tracing logger. A nil value is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		tracingLogger.Store(l)
	}
}

// GenTraceID generates a new trace ID.
func GenTraceID() string {
	return "trace_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenSpanID generates a new span ID.
func GenSpanID() string {
	return "span_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// TimeISO returns the current UTC time in ISO 8601 format.
func TimeISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
