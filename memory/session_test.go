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

package memory_test

import (
	"testing"

	"github.com/nlpodyssey/storycrafter/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySessionService(t *testing.T) {
	service := memory.NewInMemorySessionService()

	t.Run("create generates id when missing", func(t *testing.T) {
		session, err := service.Create(t.Context(), "storycrafter", "user-1", "")
		require.NoError(t, err)
		assert.NotEmpty(t, session.SessionID)
	})

	t.Run("create is idempotent", func(t *testing.T) {
		first, err := service.Create(t.Context(), "storycrafter", "user-1", "s1")
		require.NoError(t, err)

		require.NoError(t, service.UpdateCurrentStory(t.Context(), "storycrafter", "user-1", "s1", "a story"))

		again, err := service.Create(t.Context(), "storycrafter", "user-1", "s1")
		require.NoError(t, err)
		assert.Equal(t, first.SessionID, again.SessionID)
		assert.Equal(t, "a story", again.CurrentStory)
	})

	t.Run("get missing session", func(t *testing.T) {
		_, err := service.Get(t.Context(), "storycrafter", "user-1", "nope")
		assert.ErrorIs(t, err, memory.ErrSessionNotFound)
	})

	t.Run("append events preserves order", func(t *testing.T) {
		_, err := service.Create(t.Context(), "storycrafter", "user-2", "s2")
		require.NoError(t, err)

		err = service.AppendEvents(t.Context(), "storycrafter", "user-2", "s2", []memory.Event{
			memory.NewEvent("user", "user", "tell me a story"),
			memory.NewEvent("story_writer", "model", "Once upon a time..."),
		})
		require.NoError(t, err)

		session, err := service.Get(t.Context(), "storycrafter", "user-2", "s2")
		require.NoError(t, err)
		require.Len(t, session.Events, 2)
		assert.Equal(t, "user", session.Events[0].Author)
		assert.Equal(t, "story_writer", session.Events[1].Author)
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		_, err := service.Create(t.Context(), "storycrafter", "user-3", "s3")
		require.NoError(t, err)

		session, err := service.Get(t.Context(), "storycrafter", "user-3", "s3")
		require.NoError(t, err)
		session.CurrentStory = "mutated locally"

		fresh, err := service.Get(t.Context(), "storycrafter", "user-3", "s3")
		require.NoError(t, err)
		assert.Empty(t, fresh.CurrentStory)
	})

	t.Run("update current story replaces wholesale", func(t *testing.T) {
		_, err := service.Create(t.Context(), "storycrafter", "user-4", "s4")
		require.NoError(t, err)

		require.NoError(t, service.UpdateCurrentStory(t.Context(), "storycrafter", "user-4", "s4", "v1"))
		require.NoError(t, service.UpdateCurrentStory(t.Context(), "storycrafter", "user-4", "s4", "v2"))

		session, err := service.Get(t.Context(), "storycrafter", "user-4", "s4")
		require.NoError(t, err)
		assert.Equal(t, "v2", session.CurrentStory)
		assert.True(t, session.HasStory())
	})
}

func TestGetOrCreate(t *testing.T) {
	service := memory.NewInMemorySessionService()

	created, err := memory.GetOrCreate(t.Context(), service, "storycrafter", "u", "sess")
	require.NoError(t, err)

	got, err := memory.GetOrCreate(t.Context(), service, "storycrafter", "u", "sess")
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)
}

func TestSessionHasStory(t *testing.T) {
	var nilSession *memory.Session
	assert.False(t, nilSession.HasStory())
	assert.False(t, (&memory.Session{}).HasStory())
	assert.True(t, (&memory.Session{CurrentStory: "text"}).HasStory())
}
