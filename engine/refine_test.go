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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/agentstesting"
	"github.com/nlpodyssey/storycrafter/story"
)

func newTestLoop(model *agentstesting.FakeModel, maxIterations int) *RefinementLoop {
	return &RefinementLoop{
		Runner:        agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}},
		Critic:        NewQualityCriticAgent(),
		Refiner:       NewStoryRefinerAgent(),
		MaxIterations: maxIterations,
	}
}

func baseDraft() story.Draft {
	return story.Draft{
		Title:                       "The Last Ember",
		Text:                        "Once upon a time, a small dragon kept the last ember safe.",
		WordCount:                   11,
		EstimatedReadingTimeMinutes: 1,
		Tone:                        "calming",
		ReadingLevel:                "Early reader (ages 5-7)",
	}
}

func TestRefinementLoopImmediateApproval(t *testing.T) {
	model := &agentstesting.FakeModel{
		Respond: stageResponder(map[string]string{"critic": "APPROVED"}, nil),
	}
	loop := newTestLoop(model, 0)

	var events []StoryStreamEvent
	draft := baseDraft()
	final, err := loop.Refine(t.Context(), draft, collectEvents(&events))
	require.NoError(t, err)

	// Exactly one critique, zero revisions, draft unchanged.
	assert.Equal(t, draft, final)
	critiques := eventsOfType[CritiqueEvent](events)
	require.Len(t, critiques, 1)
	assert.True(t, critiques[0].Approved)
	assert.Equal(t, 1, critiques[0].Iteration)
	assert.Equal(t, "APPROVED", critiques[0].Feedback)
	assert.Empty(t, eventsOfType[RefinedEvent](events))
	assert.Len(t, model.Calls, 1)
}

func TestRefinementLoopBoundedByCap(t *testing.T) {
	model := &agentstesting.FakeModel{
		Respond: stageResponder(map[string]string{
			"critic":  "The pacing drags in the middle. Tighten the second act.",
			"refiner": testRefinedDraftJSON,
		}, nil),
	}
	loop := newTestLoop(model, 2)

	var events []StoryStreamEvent
	final, err := loop.Refine(t.Context(), baseDraft(), collectEvents(&events))
	require.NoError(t, err)

	critiques := eventsOfType[CritiqueEvent](events)
	refinements := eventsOfType[RefinedEvent](events)
	assert.Len(t, critiques, 2)
	assert.Len(t, refinements, 2)
	for i, c := range critiques {
		assert.False(t, c.Approved)
		assert.Equal(t, i+1, c.Iteration)
	}

	// The last revision is accepted even without explicit approval.
	assert.Equal(t, "The Last Ember", final.Title)
	assert.Contains(t, final.Text, "brave little dragon")
}

func TestRefinementLoopApprovalOnSecondPass(t *testing.T) {
	var critiqueCount atomic.Int32
	responses := map[string]string{"refiner": testRefinedDraftJSON}
	model := &agentstesting.FakeModel{}
	model.Respond = func(params agents.ModelCallParams) (string, error) {
		if params.OutputType == nil {
			if critiqueCount.Add(1) == 1 {
				return "Add more sensory detail to the storm scene.", nil
			}
			return "APPROVED", nil
		}
		return stageResponder(responses, nil)(params)
	}
	loop := newTestLoop(model, 0)

	var events []StoryStreamEvent
	final, err := loop.Refine(t.Context(), baseDraft(), collectEvents(&events))
	require.NoError(t, err)

	assert.Len(t, eventsOfType[CritiqueEvent](events), 2)
	assert.Len(t, eventsOfType[RefinedEvent](events), 1)
	assert.Contains(t, final.Text, "brave little dragon")
}

func TestRefinementLoopCriticError(t *testing.T) {
	model := &agentstesting.FakeModel{
		Respond: stageResponder(nil, map[string]error{"critic": errors.New("rate limited")}),
	}
	loop := newTestLoop(model, 0)

	_, err := loop.Refine(t.Context(), baseDraft(), func(StoryStreamEvent) {})
	require.Error(t, err)
	assert.ErrorContains(t, err, "critique failed at iteration 1")
}

func TestRefinementLoopRefinerError(t *testing.T) {
	model := &agentstesting.FakeModel{
		Respond: stageResponder(
			map[string]string{"critic": "Too abrupt an ending."},
			map[string]error{"refiner": errors.New("rate limited")},
		),
	}
	loop := newTestLoop(model, 0)

	var events []StoryStreamEvent
	_, err := loop.Refine(t.Context(), baseDraft(), collectEvents(&events))
	require.Error(t, err)
	assert.ErrorContains(t, err, "revision failed at iteration 1")
	assert.Len(t, eventsOfType[CritiqueEvent](events), 1)
}
