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

// Package chatserver exposes the story engine over a WebSocket endpoint.
// Each inbound message is one user turn; the engine's stream events are
// forwarded to the client as JSON frames as they happen.
package chatserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nlpodyssey/storycrafter/engine"
)

// TurnMessage is an inbound client message requesting one story turn.
type TurnMessage struct {
	Prompt string `json:"prompt"`

	// SessionID continues an existing conversation. Empty starts a new
	// session; the generated id is reported in a "session" frame.
	SessionID string `json:"session_id,omitempty"`

	EnableRefinement bool `json:"enable_refinement,omitempty"`
}

// Frame is one outbound JSON message.
type Frame struct {
	// Type is the stream event type, or "session" for the session id
	// announcement at the start of a turn.
	Type     string         `json:"type"`
	Author   string         `json:"author,omitempty"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Server handles WebSocket chat connections. It implements http.Handler.
type Server struct {
	engine   *engine.Engine
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

type ServerParams struct {
	// Engine processes the turns. Required.
	Engine *engine.Engine

	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger

	// CheckOrigin overrides the upgrader's origin policy. Nil allows any
	// origin.
	CheckOrigin func(*http.Request) bool
}

func NewServer(params ServerParams) (*Server, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("chatserver: engine is required")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checkOrigin := params.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		engine: params.Engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for {
		var msg TurnMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("error reading websocket message", slog.String("error", err.Error()))
			}
			return
		}

		if err := s.handleTurn(conn, r, userID, msg); err != nil {
			s.logger.Warn("websocket connection lost during turn", slog.String("error", err.Error()))
			return
		}
	}
}

// handleTurn runs one turn and forwards its events. A returned error means
// the connection is unusable; turn failures are sent as error frames.
func (s *Server) handleTurn(conn *websocket.Conn, r *http.Request, userID string, msg TurnMessage) error {
	stream := s.engine.ProcessStoryRequest(r.Context(), engine.TurnRequest{
		Prompt:           msg.Prompt,
		UserID:           userID,
		SessionID:        msg.SessionID,
		EnableRefinement: msg.EnableRefinement,
	})

	if err := conn.WriteJSON(Frame{Type: "session", Content: stream.SessionID}); err != nil {
		return err
	}

	return stream.StreamEvents(func(event engine.StoryStreamEvent) error {
		return conn.WriteJSON(frameFromEvent(event))
	})
}

func frameFromEvent(event engine.StoryStreamEvent) Frame {
	switch e := event.(type) {
	case engine.StatusEvent:
		return Frame{Type: e.Type(), Author: e.Author, Content: e.Message}

	case engine.DraftEvent:
		return Frame{
			Type:    e.Type(),
			Author:  "story_writer",
			Content: e.Draft.Text,
			Metadata: map[string]any{
				"title":                          e.Draft.Title,
				"word_count":                     e.Draft.WordCount,
				"estimated_reading_time_minutes": e.Draft.EstimatedReadingTimeMinutes,
				"tone":                           e.Draft.Tone,
				"reading_level":                  e.Draft.ReadingLevel,
			},
		}

	case engine.CritiqueEvent:
		return Frame{
			Type:    e.Type(),
			Author:  "quality_critic",
			Content: e.Feedback,
			Metadata: map[string]any{
				"iteration": e.Iteration,
				"approved":  e.Approved,
			},
		}

	case engine.RefinedEvent:
		return Frame{
			Type:    e.Type(),
			Author:  "story_refiner",
			Content: e.Draft.Text,
			Metadata: map[string]any{
				"iteration": e.Iteration,
				"title":     e.Draft.Title,
			},
		}

	case engine.EditedEvent:
		return Frame{Type: e.Type(), Author: "story_editor", Content: e.Text}

	case engine.AnswerEvent:
		return Frame{Type: e.Type(), Author: "story_guide", Content: e.Text}

	case engine.ErrorEvent:
		frame := Frame{Type: e.Type(), Content: e.Err.Error()}
		if e.IsSafetyViolation {
			frame.Metadata = map[string]any{
				"safety_violation": true,
				"score":            e.Score,
			}
		}
		return frame

	case engine.CompleteEvent:
		frame := Frame{Type: e.Type(), Content: e.FinalStory}
		if e.Usage != nil {
			frame.Metadata = map[string]any{
				"requests":      e.Usage.Requests,
				"input_tokens":  e.Usage.InputTokens,
				"output_tokens": e.Usage.OutputTokens,
				"total_tokens":  e.Usage.TotalTokens,
			}
		}
		return frame
	}

	return Frame{Type: event.Type()}
}
