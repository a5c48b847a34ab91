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

package engine

import (
	"fmt"
	"strings"

	"github.com/nlpodyssey/storycrafter/agents"
)

// Scripted structured outputs for the pipeline stages. The strict output
// schemas require every field to be present.

const testIntentJSON = `{
	"age": 6,
	"themes": ["dragons", "friendship"],
	"tone": "calming",
	"genre": "bedtime",
	"length_minutes": 5,
	"safety_constraints": []
}`

const testWorldJSON = `{
	"name": "Emberwick Vale",
	"description": "A misty valley where every hearth fire is lit by a dragon's breath.",
	"rules": ["dragons may only breathe fire at dusk", "promises cannot be broken"],
	"locations": ["The Cinder Market", "Lantern Falls", "The Sleeping Peak"],
	"aesthetic": "Warm lantern light over slate rooftops."
}`

const testCharactersJSON = `{
	"characters": [{
		"name": "Pip",
		"species": "dragon",
		"role": "protagonist",
		"physical_traits": ["small", "copper scales", "crooked left horn"],
		"personality_traits": ["curious", "shy", "stubborn"],
		"strengths": ["gentle flame", "good memory"],
		"weaknesses": ["afraid of the dark", "too trusting"],
		"motivations": "wants to light the village lanterns alone",
		"goals": "earn the lantern keeper's trust",
		"relationships": "apprentice to old Marrow"
	}]
}`

const testPlotJSON = `{
	"setup": "Pip trains to become the village lantern lighter.",
	"conflict": "A storm puts out every flame in the vale.",
	"rising_action": ["Pip climbs the Sleeping Peak", "Pip meets the wind spirits"],
	"climax": "Pip relights the great beacon with the last ember.",
	"resolution": "The village glows again and Pip is named lantern keeper.",
	"themes": ["courage", "friendship"],
	"episode_hook": ""
}`

const testDraftJSON = `{
	"title": "The Last Ember",
	"text": "Once upon a time, a small dragon named Pip kept the last ember safe through the storm.",
	"word_count": 17,
	"estimated_reading_time_minutes": 1,
	"tone": "calming",
	"reading_level": "Early reader (ages 5-7)"
}`

const testRefinedDraftJSON = `{
	"title": "The Last Ember",
	"text": "Once upon a time, a brave little dragon named Pip carried the last ember through wind and rain.",
	"word_count": 18,
	"estimated_reading_time_minutes": 1,
	"tone": "calming",
	"reading_level": "Early reader (ages 5-7)"
}`

// stageMarkers maps a stage key to an instruction fragment unique to that
// stage's agent.
var stageMarkers = []struct{ key, marker string }{
	{"router", "Router for a Storytelling AI"},
	{"intent", "User Intent Agent"},
	{"world", "Worldbuilder Agent"},
	{"characters", "Character Forge Agent"},
	{"plot", "Plot Architect Agent"},
	{"writer", "Story Writer Agent"},
	{"critic", "picky story critic"},
	{"refiner", "story refiner"},
	{"editor", "skilled Story Editor"},
	{"guide", "Story Expert and Guide"},
}

// stageResponder builds a FakeModel Respond hook that dispatches on the
// calling stage. responses and errs are keyed by stage key; a stage with
// neither fails the test run.
func stageResponder(responses map[string]string, errs map[string]error) func(agents.ModelCallParams) (string, error) {
	return func(params agents.ModelCallParams) (string, error) {
		for _, stage := range stageMarkers {
			if !strings.Contains(params.SystemInstructions, stage.marker) {
				continue
			}
			if err, ok := errs[stage.key]; ok {
				return "", err
			}
			if response, ok := responses[stage.key]; ok {
				return response, nil
			}
			return "", fmt.Errorf("no scripted response for stage %q", stage.key)
		}
		return "", fmt.Errorf("unrecognized stage instructions: %.60s", params.SystemInstructions)
	}
}

// createStageResponses scripts a full successful create pipeline.
func createStageResponses() map[string]string {
	return map[string]string{
		"intent":     testIntentJSON,
		"world":      testWorldJSON,
		"characters": testCharactersJSON,
		"plot":       testPlotJSON,
		"writer":     testDraftJSON,
	}
}

// collectEvents returns an emit function appending to events.
func collectEvents(events *[]StoryStreamEvent) func(StoryStreamEvent) {
	return func(event StoryStreamEvent) {
		*events = append(*events, event)
	}
}

// eventsOfType filters events by concrete type.
func eventsOfType[T StoryStreamEvent](events []StoryStreamEvent) []T {
	var out []T
	for _, event := range events {
		if e, ok := event.(T); ok {
			out = append(out, e)
		}
	}
	return out
}
