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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a single long-term memory extracted from past sessions,
// e.g. a character name or a user preference.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore is the advisory long-term memory collaborator. Callers must
// treat it as best-effort: absence or failure of the store never fails a
// turn.
type MemoryStore interface {
	// Search returns memories for the user relevant to the query,
	// most relevant first.
	Search(ctx context.Context, userID, query string) ([]Memory, error)

	// AddSession extracts memories from a finished session.
	AddSession(ctx context.Context, session *Session) error
}

// InMemoryMemoryStore keeps memories in process memory with naive keyword
// relevance scoring.
type InMemoryMemoryStore struct {
	mu       sync.RWMutex
	memories map[string][]Memory // keyed by user id
}

func NewInMemoryMemoryStore() *InMemoryMemoryStore {
	return &InMemoryMemoryStore{
		memories: make(map[string][]Memory),
	}
}

func (s *InMemoryMemoryStore) Search(_ context.Context, userID, query string) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		memory Memory
		score  int
	}
	var results []scored
	for _, memory := range s.memories[userID] {
		text := strings.ToLower(memory.Text)
		score := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 || len(terms) == 0 {
			results = append(results, scored{memory: memory, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	memories := make([]Memory, len(results))
	for i, r := range results {
		memories[i] = r.memory
	}
	return memories, nil
}

func (s *InMemoryMemoryStore) AddSession(_ context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Model outputs carry the story facts worth remembering; user events
	// carry preferences. Both are stored verbatim, relevance is decided
	// at search time.
	for _, event := range session.Events {
		text := strings.TrimSpace(event.Text)
		if text == "" {
			continue
		}
		s.memories[session.UserID] = append(s.memories[session.UserID], Memory{
			ID:        uuid.NewString(),
			UserID:    session.UserID,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}
