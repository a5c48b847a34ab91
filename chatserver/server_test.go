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

package chatserver_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/agentstesting"
	"github.com/nlpodyssey/storycrafter/chatserver"
	"github.com/nlpodyssey/storycrafter/engine"
	"github.com/nlpodyssey/storycrafter/memory"
	"github.com/nlpodyssey/storycrafter/safety"
)

const storyText = "Once upon a time, a small dragon named Pip kept the last ember safe through the storm."

func scriptedModel(responses map[string]string) *agentstesting.FakeModel {
	markers := []struct{ key, marker string }{
		{"router", "Router for a Storytelling AI"},
		{"intent", "User Intent Agent"},
		{"world", "Worldbuilder Agent"},
		{"characters", "Character Forge Agent"},
		{"plot", "Plot Architect Agent"},
		{"writer", "Story Writer Agent"},
		{"editor", "skilled Story Editor"},
		{"guide", "Story Expert and Guide"},
	}
	return &agentstesting.FakeModel{
		Respond: func(params agents.ModelCallParams) (string, error) {
			for _, stage := range markers {
				if strings.Contains(params.SystemInstructions, stage.marker) {
					if response, ok := responses[stage.key]; ok {
						return response, nil
					}
					break
				}
			}
			return "", errors.New("unexpected stage call")
		},
	}
}

func createResponses() map[string]string {
	return map[string]string{
		"intent":     `{"age": 6, "themes": ["dragons"], "tone": "calming", "genre": "bedtime", "length_minutes": 5, "safety_constraints": []}`,
		"world":      `{"name": "Emberwick Vale", "description": "A misty valley.", "rules": ["promises hold"], "locations": ["Lantern Falls"], "aesthetic": "Warm lantern light."}`,
		"characters": `{"characters": [{"name": "Pip", "species": "dragon", "role": "protagonist", "physical_traits": ["small"], "personality_traits": ["curious"], "strengths": ["gentle flame"], "weaknesses": ["afraid of the dark"], "motivations": "light the lanterns", "goals": "earn trust", "relationships": ""}]}`,
		"plot":       `{"setup": "Pip trains.", "conflict": "A storm hits.", "rising_action": ["Pip climbs"], "climax": "Pip relights the beacon.", "resolution": "The village glows.", "themes": ["courage"], "episode_hook": ""}`,
		"writer":     `{"title": "The Last Ember", "text": "` + storyText + `", "word_count": 17, "estimated_reading_time_minutes": 1, "tone": "calming", "reading_level": "Early reader (ages 5-7)"}`,
	}
}

func newTestServer(t *testing.T, model *agentstesting.FakeModel) *httptest.Server {
	t.Helper()

	e, err := engine.NewEngine(engine.EngineParams{
		Runner:   agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}},
		Sessions: memory.NewInMemorySessionService(),
		Gate:     safety.NewGate(safety.GateParams{}),
	})
	require.NoError(t, err)

	server, err := chatserver.NewServer(chatserver.ServerParams{Engine: e})
	require.NoError(t, err)

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?user_id=user-1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readTurnFrames reads frames until the terminal error or complete frame.
func readTurnFrames(t *testing.T, conn *websocket.Conn) []chatserver.Frame {
	t.Helper()
	var frames []chatserver.Frame
	for {
		var frame chatserver.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Type == "complete" || frame.Type == "error" {
			return frames
		}
	}
}

func TestServerStreamsCreateTurn(t *testing.T) {
	ts := newTestServer(t, scriptedModel(createResponses()))
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(chatserver.TurnMessage{Prompt: "Tell me a bedtime story about a dragon"}))
	frames := readTurnFrames(t, conn)

	require.GreaterOrEqual(t, len(frames), 3)
	assert.Equal(t, "session", frames[0].Type)
	assert.NotEmpty(t, frames[0].Content)

	byType := make(map[string][]chatserver.Frame)
	for _, f := range frames {
		byType[f.Type] = append(byType[f.Type], f)
	}

	require.Len(t, byType["draft_story"], 1)
	draft := byType["draft_story"][0]
	assert.Equal(t, "story_writer", draft.Author)
	assert.Equal(t, storyText, draft.Content)
	assert.Equal(t, "The Last Ember", draft.Metadata["title"])

	require.Len(t, byType["complete"], 1)
	complete := byType["complete"][0]
	assert.Equal(t, storyText, complete.Content)
	assert.EqualValues(t, 5, complete.Metadata["requests"])

	var statuses []string
	for _, f := range byType["status"] {
		statuses = append(statuses, f.Content)
	}
	assert.Contains(t, statuses, "Mode determined: CREATE")
}

func TestServerHandlesMultipleTurnsOnOneConnection(t *testing.T) {
	responses := createResponses()
	responses["router"] = `{"decision": "QUESTION"}`
	responses["guide"] = "Pip is the hero."
	ts := newTestServer(t, scriptedModel(responses))
	conn := dial(t, ts)

	// First turn creates the story.
	require.NoError(t, conn.WriteJSON(chatserver.TurnMessage{Prompt: "Tell me a story"}))
	frames := readTurnFrames(t, conn)
	sessionID := frames[0].Content
	require.NotEmpty(t, sessionID)

	// Second turn asks about it in the same session.
	require.NoError(t, conn.WriteJSON(chatserver.TurnMessage{
		Prompt:    "Who is the main character?",
		SessionID: sessionID,
	}))
	frames = readTurnFrames(t, conn)

	assert.Equal(t, sessionID, frames[0].Content, "session id is stable across turns")

	var answer *chatserver.Frame
	for i := range frames {
		if frames[i].Type == "guide_answer" {
			answer = &frames[i]
		}
	}
	require.NotNil(t, answer)
	assert.Equal(t, "story_guide", answer.Author)
	assert.Equal(t, "Pip is the hero.", answer.Content)
}

func TestServerReportsErrorsAsFrames(t *testing.T) {
	model := &agentstesting.FakeModel{
		Respond: func(agents.ModelCallParams) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	ts := newTestServer(t, model)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(chatserver.TurnMessage{Prompt: "Tell me a story"}))
	frames := readTurnFrames(t, conn)

	last := frames[len(frames)-1]
	assert.Equal(t, "error", last.Type)
	assert.NotEmpty(t, last.Content)

	// The connection survives a failed turn.
	require.NoError(t, conn.WriteJSON(chatserver.TurnMessage{Prompt: "Try again"}))
	frames = readTurnFrames(t, conn)
	assert.Equal(t, "error", frames[len(frames)-1].Type)
}
