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

// Package memory provides conversation session persistence and an
// advisory long-term memory store for story continuity across sessions.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by Get when no session exists for the
// given identifiers.
var ErrSessionNotFound = errors.New("session not found")

// Event is one entry in a session's append-only conversation log.
type Event struct {
	// Unique event identifier.
	ID string `json:"id"`

	// The producer of the event: "user" or an agent name.
	Author string `json:"author"`

	// The conversational role: "user" or "model".
	Role string `json:"role"`

	// The event text.
	Text string `json:"text"`

	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates an Event with a fresh id and timestamp.
func NewEvent(author, role, text string) Event {
	return Event{
		ID:        uuid.NewString(),
		Author:    author,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Session is the conversation state for one (app, user, session) triple.
//
// A session is created on the first turn and mutated on every turn: new
// events are appended and CurrentStory is replaced on each successful
// generation or edit. Sessions are never deleted, only superseded by a
// new session id.
type Session struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	// The text of the current story draft. Empty until the first
	// successful create turn. Exactly one story is current per session.
	CurrentStory string `json:"current_story"`

	// Append-only conversation log, in chronological order.
	Events []Event `json:"events"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStory reports whether the session holds a current story draft.
func (s *Session) HasStory() bool {
	return s != nil && s.CurrentStory != ""
}

// SessionService stores and retrieves sessions. Implementations must keep
// the event log append-only.
type SessionService interface {
	// Create makes a new session. If sessionID is empty, a fresh id is
	// generated. Creating an already-existing session returns it
	// unchanged.
	Create(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// Get retrieves an existing session, or ErrSessionNotFound.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// AppendEvents adds events to the session's log.
	AppendEvents(ctx context.Context, appName, userID, sessionID string, events []Event) error

	// UpdateCurrentStory replaces the session's current story wholesale.
	UpdateCurrentStory(ctx context.Context, appName, userID, sessionID, storyText string) error
}

// GetOrCreate fetches a session, creating it when missing.
func GetOrCreate(ctx context.Context, service SessionService, appName, userID, sessionID string) (*Session, error) {
	if sessionID != "" {
		session, err := service.Get(ctx, appName, userID, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	return service.Create(ctx, appName, userID, sessionID)
}
