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

// Package engine orchestrates the story generation turn: safety gate,
// intent routing, the staged generation pipelines and session persistence,
// streamed to the caller as progress events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/memory"
	"github.com/nlpodyssey/storycrafter/safety"
	"github.com/nlpodyssey/storycrafter/tracing"
	"github.com/nlpodyssey/storycrafter/usage"
)

// DefaultAppName namespaces sessions when no application name is set.
const DefaultAppName = "storycrafter"

// Engine runs complete story turns. It is safe for concurrent use; turns
// on the same session are serialized, turns on different sessions run
// in parallel.
type Engine struct {
	runner        agents.Runner
	sessions      memory.SessionService
	memories      memory.MemoryStore
	gate          *safety.Gate
	appName       string
	refinementCap int
	logger        *slog.Logger

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

type EngineParams struct {
	// Runner executes the stage agents.
	Runner agents.Runner

	// Sessions persists conversation state. Required.
	Sessions memory.SessionService

	// Memories is the optional advisory long-term memory store. Failures
	// are logged and never fail a turn.
	Memories memory.MemoryStore

	// Gate is the safety pre-check. If nil, a gate built from the
	// environment is used.
	Gate *safety.Gate

	// AppName namespaces sessions. Defaults to DefaultAppName.
	AppName string

	// RefinementCap bounds the critique-revise loop. Zero means
	// DefaultRefinementCap.
	RefinementCap int

	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Sessions == nil {
		return nil, agents.NewUserError("engine requires a session service")
	}
	gate := params.Gate
	if gate == nil {
		gate = safety.NewGateFromEnv()
	}
	appName := params.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		runner:        params.Runner,
		sessions:      params.Sessions,
		memories:      params.Memories,
		gate:          gate,
		appName:       appName,
		refinementCap: params.RefinementCap,
		logger:        logger,
	}, nil
}

// TurnRequest is one user turn.
type TurnRequest struct {
	// The raw user prompt.
	Prompt string

	UserID string

	// SessionID continues an existing conversation. Empty starts a new
	// session with a generated id.
	SessionID string

	// EnableRefinement adds the critique-revise loop to create turns.
	EnableRefinement bool
}

// TurnStream delivers the events of one turn in order. The turn runs in
// its own goroutine; consume it with StreamEvents.
type TurnStream struct {
	// SessionID identifies the session handling the turn, generated when
	// the request did not name one.
	SessionID string

	events chan StoryStreamEvent
}

// StreamEvents calls fn for every event of the turn, in order, until the
// turn completes or fn returns an error. A failed turn ends with an
// ErrorEvent; a successful one with a CompleteEvent.
func (s *TurnStream) StreamEvents(fn func(StoryStreamEvent) error) error {
	for event := range s.events {
		if err := fn(event); err != nil {
			// Drain so the producer goroutine can finish.
			go func() {
				for range s.events {
				}
			}()
			return err
		}
	}
	return nil
}

// ProcessStoryRequest starts a turn and returns its event stream.
//
// Turn order: safety pre-check (before any session or model work), session
// load, routing, pipeline execution, then persistence. Failed turns leave
// the session unmodified.
func (e *Engine) ProcessStoryRequest(ctx context.Context, req TurnRequest) *TurnStream {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	stream := &TurnStream{
		SessionID: sessionID,
		events:    make(chan StoryStreamEvent),
	}

	go func() {
		defer close(stream.events)
		e.runTurn(ctx, req, sessionID, func(event StoryStreamEvent) {
			stream.events <- event
		})
	}()

	return stream
}

func (e *Engine) runTurn(ctx context.Context, req TurnRequest, sessionID string, emit func(StoryStreamEvent)) {
	// Safety runs on the raw prompt before any session or LLM work.
	emit(StatusEvent{Author: "safety", Message: "Running safety pre-check..."})
	if _, err := e.gate.Require(ctx, req.Prompt); err != nil {
		var violation *safety.ViolationError
		if errors.As(err, &violation) {
			emit(ErrorEvent{Err: violation, IsSafetyViolation: true, Score: violation.Score})
			return
		}
		emit(ErrorEvent{Err: err})
		return
	}
	emit(StatusEvent{Author: "safety", Message: "Safety pre-check passed"})

	unlock := e.lockSession(req.UserID, sessionID)
	defer unlock()

	session, err := memory.GetOrCreate(ctx, e.sessions, e.appName, req.UserID, sessionID)
	if err != nil {
		emit(ErrorEvent{Err: fmt.Errorf("session lookup failed: %w", err)})
		return
	}

	emit(StatusEvent{Author: "router", Message: "Analyzing request..."})
	mode := Router{Runner: e.runner}.Route(ctx, req.Prompt, session.HasStory())
	emit(StatusEvent{Author: "router", Message: "Mode determined: " + strings.ToUpper(string(mode))})

	input := e.buildInput(ctx, mode, req, session)

	pipeline := Composer{Runner: e.runner}.BuildPipeline(PipelineParams{
		Mode:             mode,
		EnableRefinement: req.EnableRefinement,
		RefinementCap:    e.refinementCap,
	})

	turnUsage := usage.NewUsage()
	ctx = usage.NewContext(ctx, turnUsage)

	var result PipelineResult
	err = tracing.RunTrace(
		ctx,
		tracing.TraceParams{WorkflowName: "story_turn", GroupID: sessionID},
		func(ctx context.Context, _ tracing.Trace) error {
			var err error
			result, err = pipeline.Run(ctx, input, emit)
			return err
		},
	)
	if err != nil {
		// The session stays untouched: a failed turn must not corrupt the
		// current story or the event log.
		emit(ErrorEvent{Err: err})
		return
	}

	if err := e.persistTurn(ctx, req, sessionID, mode, result); err != nil {
		emit(ErrorEvent{Err: err})
		return
	}

	emit(StatusEvent{Author: "engine", Message: "Story processing complete"})
	emit(CompleteEvent{FinalStory: result.StoryText, Usage: turnUsage})
}

// buildInput assembles the pipeline input for the resolved mode,
// prepending long-term memories on create turns when available.
func (e *Engine) buildInput(ctx context.Context, mode Mode, req TurnRequest, session *memory.Session) string {
	switch mode {
	case ModeEdit:
		return fmt.Sprintf("CURRENT STORY:\n%s\n\nEDIT REQUEST:\n%s", session.CurrentStory, req.Prompt)
	case ModeQuestion:
		return fmt.Sprintf("STORY CONTEXT:\n%s\n\nQUESTION:\n%s", session.CurrentStory, req.Prompt)
	}

	if e.memories == nil {
		return req.Prompt
	}
	memories, err := e.memories.Search(ctx, req.UserID, req.Prompt)
	if err != nil {
		e.logger.Warn("memory search failed, continuing without memories", slog.String("error", err.Error()))
		return req.Prompt
	}
	if len(memories) == 0 {
		return req.Prompt
	}

	var sb strings.Builder
	sb.WriteString("**IMPORTANT USER PREFERENCES/MEMORIES:**\n")
	for _, m := range memories {
		sb.WriteString("- ")
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(req.Prompt)
	return sb.String()
}

func (e *Engine) persistTurn(ctx context.Context, req TurnRequest, sessionID string, mode Mode, result PipelineResult) error {
	events := []memory.Event{
		memory.NewEvent("user", "user", req.Prompt),
		memory.NewEvent(modeAuthor(mode), "model", result.Output),
	}
	if err := e.sessions.AppendEvents(ctx, e.appName, req.UserID, sessionID, events); err != nil {
		return fmt.Errorf("failed to persist turn events: %w", err)
	}

	if result.StoryText != "" {
		if err := e.sessions.UpdateCurrentStory(ctx, e.appName, req.UserID, sessionID, result.StoryText); err != nil {
			return fmt.Errorf("failed to persist current story: %w", err)
		}
	}

	if e.memories != nil {
		session, err := e.sessions.Get(ctx, e.appName, req.UserID, sessionID)
		if err == nil {
			err = e.memories.AddSession(ctx, session)
		}
		if err != nil {
			e.logger.Warn("memory ingestion failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func modeAuthor(mode Mode) string {
	switch mode {
	case ModeEdit:
		return "story_editor_agent"
	case ModeQuestion:
		return "story_guide_agent"
	}
	return "story_writer_agent"
}

// lockSession serializes turns on the same session.
func (e *Engine) lockSession(userID, sessionID string) func() {
	key := userID + "/" + sessionID

	e.mu.Lock()
	if e.sessionLocks == nil {
		e.sessionLocks = make(map[string]*sync.Mutex)
	}
	lock, ok := e.sessionLocks[key]
	if !ok {
		lock = new(sync.Mutex)
		e.sessionLocks[key] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
