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
	"sync"
)

// scope holds the current trace and span. It is stored by pointer in the
// context so that Start/Finish can update it in place; Run clones it first
// so sibling goroutines are not affected.
type scope struct {
	mu    sync.Mutex
	trace Trace
	span  Span
}

type scopeKey struct{}

func scopeFromContext(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// ContextWithClonedOrNewScope returns a context with a copy of the current
// scope, or a fresh scope when none is present.
func ContextWithClonedOrNewScope(ctx context.Context) context.Context {
	newScope := &scope{}
	if s := scopeFromContext(ctx); s != nil {
		s.mu.Lock()
		newScope.trace = s.trace
		newScope.span = s.span
		s.mu.Unlock()
	}
	return context.WithValue(ctx, scopeKey{}, newScope)
}

func setCurrentTrace(ctx context.Context, t Trace) Trace {
	s := scopeFromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.trace
	s.trace = t
	return prev
}

func setCurrentSpan(ctx context.Context, span Span) Span {
	s := scopeFromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.span
	s.span = span
	return prev
}

// GetCurrentTrace returns the currently active trace, if present.
func GetCurrentTrace(ctx context.Context) Trace {
	s := scopeFromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}

// GetCurrentSpan returns the currently active span, if present.
func GetCurrentSpan(ctx context.Context) Span {
	s := scopeFromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.span
}
