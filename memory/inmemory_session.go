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

package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemorySessionService keeps sessions in process memory. State is lost
// when the process ends; intended for development and tests.
type InMemorySessionService struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*Session
}

type sessionKey struct {
	appName   string
	userID    string
	sessionID string
}

func NewInMemorySessionService() *InMemorySessionService {
	return &InMemorySessionService{
		sessions: make(map[sessionKey]*Session),
	}
}

func (s *InMemorySessionService) Create(_ context.Context, appName, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{appName, userID, sessionID}
	if existing, ok := s.sessions[key]; ok {
		return cloneSession(existing), nil
	}

	now := time.Now().UTC()
	session := &Session{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[key] = session
	return cloneSession(session), nil
}

func (s *InMemorySessionService) Get(_ context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionKey{appName, userID, sessionID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *InMemorySessionService) AppendEvents(_ context.Context, appName, userID, sessionID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey{appName, userID, sessionID}]
	if !ok {
		return ErrSessionNotFound
	}
	session.Events = append(session.Events, events...)
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemorySessionService) UpdateCurrentStory(_ context.Context, appName, userID, sessionID, storyText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey{appName, userID, sessionID}]
	if !ok {
		return ErrSessionNotFound
	}
	session.CurrentStory = storyText
	session.UpdatedAt = time.Now().UTC()
	return nil
}

// cloneSession returns a copy so callers cannot mutate stored state.
func cloneSession(s *Session) *Session {
	clone := *s
	clone.Events = slices.Clone(s.Events)
	return &clone
}
