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
	"path/filepath"
	"testing"

	"github.com/nlpodyssey/storycrafter/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteService(t *testing.T) *memory.SQLiteSessionService {
	t.Helper()
	service, err := memory.NewSQLiteSessionService(t.Context(), memory.SQLiteSessionServiceParams{
		DBDataSourceName: filepath.Join(t.TempDir(), "sessions.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, service.Close())
	})
	return service
}

func TestSQLiteSessionServiceRoundTrip(t *testing.T) {
	service := newSQLiteService(t)

	session, err := service.Create(t.Context(), "storycrafter", "user-1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.SessionID)
	assert.Empty(t, session.CurrentStory)

	err = service.AppendEvents(t.Context(), "storycrafter", "user-1", "s1", []memory.Event{
		memory.NewEvent("user", "user", "a story about dragons"),
		memory.NewEvent("story_writer", "model", "The Last Ember..."),
	})
	require.NoError(t, err)

	require.NoError(t, service.UpdateCurrentStory(t.Context(), "storycrafter", "user-1", "s1", "The Last Ember..."))

	got, err := service.Get(t.Context(), "storycrafter", "user-1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "The Last Ember...", got.CurrentStory)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "a story about dragons", got.Events[0].Text)
	assert.Equal(t, "model", got.Events[1].Role)
}

func TestSQLiteSessionServiceNotFound(t *testing.T) {
	service := newSQLiteService(t)

	_, err := service.Get(t.Context(), "storycrafter", "user-1", "missing")
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)

	err = service.UpdateCurrentStory(t.Context(), "storycrafter", "user-1", "missing", "text")
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
}

func TestSQLiteSessionServiceCreateIdempotent(t *testing.T) {
	service := newSQLiteService(t)

	_, err := service.Create(t.Context(), "storycrafter", "user-1", "s1")
	require.NoError(t, err)
	require.NoError(t, service.UpdateCurrentStory(t.Context(), "storycrafter", "user-1", "s1", "existing"))

	again, err := service.Create(t.Context(), "storycrafter", "user-1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "existing", again.CurrentStory)
}

func TestSQLiteSessionServiceGeneratedID(t *testing.T) {
	service := newSQLiteService(t)

	session, err := service.Create(t.Context(), "storycrafter", "user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
}

func TestSQLiteSessionServiceSessionIsolation(t *testing.T) {
	service := newSQLiteService(t)

	_, err := service.Create(t.Context(), "storycrafter", "user-1", "a")
	require.NoError(t, err)
	_, err = service.Create(t.Context(), "storycrafter", "user-1", "b")
	require.NoError(t, err)

	require.NoError(t, service.AppendEvents(t.Context(), "storycrafter", "user-1", "a", []memory.Event{
		memory.NewEvent("user", "user", "only in a"),
	}))

	b, err := service.Get(t.Context(), "storycrafter", "user-1", "b")
	require.NoError(t, err)
	assert.Empty(t, b.Events)
}
