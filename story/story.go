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

// Package story defines the structured artifacts exchanged between the
// story generation stages: the extracted user intent, the world, character
// and plot models produced by the parallel content generators, the story
// draft itself, and the transient routing and critique results.
package story

import (
	"strings"
)

// averageWordsPerMinute is the reading speed used for estimates,
// in line with read-aloud pace for children's stories.
const averageWordsPerMinute = 150

// UserIntent is the structured representation of a user's story request.
// It is produced once per "create" turn and is immutable afterwards: the
// three content generators and the prose writer all consume the same value.
type UserIntent struct {
	// Target age of the audience in years.
	Age int `json:"age"`

	// Story themes, topics or elements requested. Never empty.
	Themes []string `json:"themes"`

	// Desired emotional tone or mood of the story.
	Tone string `json:"tone"`

	// Story genre or category.
	Genre string `json:"genre"`

	// Approximate story length in minutes.
	LengthMinutes int `json:"length_minutes"`

	// Optional content restrictions, e.g. "no scary elements".
	SafetyConstraints []string `json:"safety_constraints,omitempty"`
}

// WorldModel is the worldbuilder's artifact: the setting of the story.
type WorldModel struct {
	// A creative, memorable name for the world.
	Name string `json:"name"`

	// A rich description of the world's essence and atmosphere.
	Description string `json:"description"`

	// World rules or governing principles.
	Rules []string `json:"rules"`

	// Key named locations or landmarks.
	Locations []string `json:"locations"`

	// Visual/tonal aesthetic of the world.
	Aesthetic string `json:"aesthetic"`
}

// Character is a single story character.
type Character struct {
	Name              string   `json:"name"`
	Species           string   `json:"species"`
	Role              string   `json:"role"`
	PhysicalTraits    []string `json:"physical_traits"`
	PersonalityTraits []string `json:"personality_traits"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Motivations       string   `json:"motivations"`
	Goals             string   `json:"goals"`
	Relationships     string   `json:"relationships,omitempty"`
}

// CharacterModel is the character forge's artifact: the story cast.
type CharacterModel struct {
	Characters []Character `json:"characters"`
}

// PlotModel is the plot architect's artifact: a classic story arc.
type PlotModel struct {
	// The initial situation: normal world, characters, stakes.
	Setup string `json:"setup"`

	// The inciting incident or main problem.
	Conflict string `json:"conflict"`

	// Key events building tension toward the climax.
	RisingAction []string `json:"rising_action"`

	// The peak moment of tension.
	Climax string `json:"climax"`

	// How the conflict is resolved.
	Resolution string `json:"resolution"`

	// Key themes explored.
	Themes []string `json:"themes"`

	// Optional hook for series continuity.
	EpisodeHook string `json:"episode_hook,omitempty"`
}

// Draft is the current candidate story text and its metadata.
//
// Exactly one Draft is "current" per session at any time. The refinement
// loop replaces text and metadata wholesale on each revision; there is no
// partial patching.
type Draft struct {
	// The story's title.
	Title string `json:"title"`

	// The complete narrative prose of the story.
	Text string `json:"text"`

	// Total number of words in the story.
	WordCount int `json:"word_count"`

	// Estimated reading time in minutes at average reading speed.
	EstimatedReadingTimeMinutes int `json:"estimated_reading_time_minutes"`

	// The narrative tone/mood, e.g. "whimsical" or "calming".
	Tone string `json:"tone"`

	// Age-appropriate reading level description,
	// e.g. "Early reader (ages 5-7)".
	ReadingLevel string `json:"reading_level"`
}

// Decision is the router's classification of a user turn.
type Decision string

const (
	DecisionNewStory  Decision = "NEW_STORY"
	DecisionEditStory Decision = "EDIT_STORY"
	DecisionQuestion  Decision = "QUESTION"
)

// RoutingDecision is the router agent's structured output. It is transient:
// produced and consumed within a single turn.
type RoutingDecision struct {
	Decision Decision `json:"decision" jsonschema:"enum=NEW_STORY,enum=EDIT_STORY,enum=QUESTION"`

	// Optional confidence score for the decision, in [0, 1].
	Confidence float64 `json:"confidence,omitempty"`
}

// FeedbackStatus is the quality critic's verdict on a draft.
type FeedbackStatus string

const (
	FeedbackApproved      FeedbackStatus = "APPROVED"
	FeedbackNeedsRevision FeedbackStatus = "NEEDS_REVISION"
)

// Feedback is the critique produced by one iteration of the refinement
// loop. Feedback text is empty when the draft is approved.
type Feedback struct {
	Status   FeedbackStatus `json:"status" jsonschema:"enum=APPROVED,enum=NEEDS_REVISION"`
	Feedback string         `json:"feedback"`
}

// Approved reports whether the critic accepted the draft.
func (f Feedback) Approved() bool {
	return f.Status == FeedbackApproved
}

// WordCount counts whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTimeMinutes estimates reading time for text, rounding up and
// never returning less than one minute for non-empty text.
func ReadingTimeMinutes(text string) int {
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	minutes := (words + averageWordsPerMinute - 1) / averageWordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Normalize fills derived Draft metadata (word count, reading time) from
// the draft text when the model left them unset or inconsistent.
func (d *Draft) Normalize() {
	if d.WordCount <= 0 {
		d.WordCount = WordCount(d.Text)
	}
	if d.EstimatedReadingTimeMinutes <= 0 {
		d.EstimatedReadingTimeMinutes = ReadingTimeMinutes(d.Text)
	}
}
