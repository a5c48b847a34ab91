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
	"github.com/nlpodyssey/storycrafter/story"
	"github.com/nlpodyssey/storycrafter/usage"
)

// StoryStreamEvent is the discriminated union of progress events streamed
// to the caller while a turn is processed. Consumers should switch
// exhaustively over the concrete types.
type StoryStreamEvent interface {
	isStoryStreamEvent()

	// Type returns the wire name of the event.
	Type() string
}

// StatusEvent reports stage progress, e.g. "Running safety pre-check...".
type StatusEvent struct {
	// The stage that produced the status, e.g. "safety" or "router".
	Author  string
	Message string
}

func (StatusEvent) isStoryStreamEvent() {}
func (StatusEvent) Type() string        { return "status" }

// DraftEvent carries the prose writer's initial draft.
type DraftEvent struct {
	Draft story.Draft
}

func (DraftEvent) isStoryStreamEvent() {}
func (DraftEvent) Type() string        { return "draft_story" }

// CritiqueEvent carries one quality critic verdict.
type CritiqueEvent struct {
	Iteration int
	Feedback  string
	Approved  bool
}

func (CritiqueEvent) isStoryStreamEvent() {}
func (CritiqueEvent) Type() string        { return "critique" }

// RefinedEvent carries a revised draft produced by the refiner.
type RefinedEvent struct {
	Iteration int
	Draft     story.Draft
}

func (RefinedEvent) isStoryStreamEvent() {}
func (RefinedEvent) Type() string        { return "refined_story" }

// EditedEvent carries the complete story text after an edit turn.
type EditedEvent struct {
	Text string
}

func (EditedEvent) isStoryStreamEvent() {}
func (EditedEvent) Type() string        { return "edited_story" }

// AnswerEvent carries the story guide's answer to a question. The current
// story is not modified.
type AnswerEvent struct {
	Text string
}

func (AnswerEvent) isStoryStreamEvent() {}
func (AnswerEvent) Type() string        { return "guide_answer" }

// ErrorEvent reports a failed turn. Safety violations are flagged so the
// caller can present them distinctly from generic failures.
type ErrorEvent struct {
	Err               error
	IsSafetyViolation bool

	// Score is the toxicity score, set only for safety violations.
	Score float64
}

func (ErrorEvent) isStoryStreamEvent() {}
func (ErrorEvent) Type() string        { return "error" }

// CompleteEvent signals the end of a successful turn.
type CompleteEvent struct {
	// FinalStory is the current story after the turn. Empty for question
	// turns, which never mutate the story.
	FinalStory string

	// Usage is the accumulated LLM consumption of the whole turn.
	Usage *usage.Usage
}

func (CompleteEvent) isStoryStreamEvent() {}
func (CompleteEvent) Type() string        { return "complete" }
